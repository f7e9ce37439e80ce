package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit/internal"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Display certificate information from a file",
	Long: `Decode the certificates of a file without the plugin: PEM, DER, Base64 DER as
exported by the plugin, PKCS#7, PKCS#12 and JKS are recognized.`,
	Example: `  cadeskit inspect user.cer
  cadeskit inspect bundle.p7b --format yaml
  cadeskit inspect store.pfx -p secret`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(splitPasswords(passwordList), passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	results, err := internal.InspectFile(args[0], passwords)
	if err != nil {
		return err
	}

	output, err := internal.FormatInspectResults(results, outputFormat)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), output)
	return err
}
