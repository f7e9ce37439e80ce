package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
	"github.com/sensiblebit/cadeskit/host/comhost"
	"github.com/sensiblebit/cadeskit/internal"
	"github.com/sensiblebit/cadeskit/plugin"
)

var (
	logLevel     string
	configPath   string
	dbPath       string
	outputFormat string
	noValidate   bool
	passwordList string
	passwordFile string
)

// loader opens the host plugin; tests replace it with a fake.
var loader func() host.Loader = comhost.Loader

var (
	clientOnce sync.Once
	client     *plugin.Client
	clientErr  error
)

var rootCmd = &cobra.Command{
	Use:   "cadeskit",
	Short: "CryptoPro CAdES plugin tool",
	Long: `Sign, encrypt and enroll with CryptoPro CSP through the CAdES plugin, list
the certificates it can use, and catalog them in SQLite for offline lookups.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		internal.SetupLoggerTo(cmd.ErrOrStderr(), logLevel)
		if outputFormat == "" {
			outputFormat = internal.DefaultFormat(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings YAML file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite certificate catalog path (default: none)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "Output format: text, json or yaml (default: text on a terminal, json otherwise)")
	rootCmd.PersistentFlags().BoolVar(&noValidate, "no-validate", false, "Skip system validation before the first plugin operation")
	rootCmd.PersistentFlags().StringVarP(&passwordList, "passwords", "p", "", "Comma-separated passwords for PKCS#12 and JKS files")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "File containing passwords, one per line")

	registerCompletion(rootCmd, completionInput{"format", fixedCompletion(internal.FormatText, internal.FormatJSON, internal.FormatYAML)})
	registerCompletion(rootCmd, completionInput{"config", fileCompletion})
	registerCompletion(rootCmd, completionInput{"db", fileCompletion})

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(systemInfoCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(licensesCmd)
	rootCmd.AddCommand(readersCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(signHashCmd)
	rootCmd.AddCommand(signXMLCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(csrCmd)
}

// pluginClient returns the process client, built on first use from the
// settings file and flags.
func pluginClient() (*plugin.Client, error) {
	clientOnce.Do(func() {
		settings := cadeskit.DefaultSettings()
		if configPath != "" {
			settings, clientErr = cadeskit.LoadSettings(configPath)
			if clientErr != nil {
				return
			}
		}
		if noValidate {
			settings.CheckSystemSetup = false
		}
		client = plugin.New(loader(), plugin.WithSettings(settings))
	})
	return client, clientErr
}

func splitPasswords(list string) []string {
	if list == "" {
		return nil
	}
	return strings.Split(list, ",")
}

// printResult renders v in the selected output format.
func printResult(cmd *cobra.Command, v any, text func(*strings.Builder)) error {
	out, err := internal.Render(outputFormat, v, text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
