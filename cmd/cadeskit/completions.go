package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type completeFunc func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)

// completionInput names a flag and the function completing its value.
type completionInput struct {
	flagName     string
	completeFunc completeFunc
}

// registerCompletion panics when the flag does not exist.
func registerCompletion(cmd *cobra.Command, in completionInput) {
	if err := cmd.RegisterFlagCompletionFunc(in.flagName, in.completeFunc); err != nil {
		panic(fmt.Sprintf("%s --%s: %v", cmd.Name(), in.flagName, err))
	}
}

func fixedCompletion(values ...string) completeFunc {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func directoryCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

func fileCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveDefault
}

// thumbprintCompletion suggests thumbprints recorded in the --db catalog,
// described by the certificate name. Without a catalog nothing is suggested;
// completion never talks to the plugin.
func thumbprintCompletion(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if dbPath == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	db, err := openCatalog()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer func() { _ = db.Close() }()

	records, err := db.GetAllCerts()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	prefix := strings.ToUpper(toComplete)
	var out []string
	for _, r := range records {
		if strings.HasPrefix(r.Thumbprint, prefix) {
			out = append(out, r.Thumbprint+"\t"+r.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
