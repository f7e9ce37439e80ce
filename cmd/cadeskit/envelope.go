package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit/plugin"
)

var (
	encryptRecipients []string
	envelopeOutPath   string
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <file>",
	Short: "Encrypt a file for one or more certificate holders",
	Example: `  cadeskit encrypt report.xlsx -r A1B2... -r C3D4... -o report.xlsx.enc`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		c, err := pluginClient()
		if err != nil {
			return err
		}
		recipients := make([]plugin.CertificateRef, 0, len(encryptRecipients))
		for _, thumbprint := range encryptRecipients {
			cert, err := certificateByThumbprint(cmd, c, thumbprint)
			if err != nil {
				return err
			}
			recipients = append(recipients, cert)
		}
		envelope, err := c.Encrypt(cmd.Context(), data, recipients)
		if err != nil {
			return err
		}
		return writeOutput(cmd, envelopeOutPath, []byte(envelope+"\n"))
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file>",
	Short: "Decrypt a Base64 CMS envelope with an installed private key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envelope, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		c, err := pluginClient()
		if err != nil {
			return err
		}
		data, err := c.Decrypt(cmd.Context(), strings.TrimSpace(string(envelope)))
		if err != nil {
			return err
		}
		return writeOutput(cmd, envelopeOutPath, data)
	},
}

func init() {
	encryptCmd.Flags().StringArrayVarP(&encryptRecipients, "recipient", "r", nil, "Thumbprint of a recipient certificate (repeatable)")
	if err := encryptCmd.MarkFlagRequired("recipient"); err != nil {
		panic(err)
	}
	registerCompletion(encryptCmd, completionInput{"recipient", thumbprintCompletion})
	for _, cmd := range []*cobra.Command{encryptCmd, decryptCmd} {
		cmd.Flags().StringVarP(&envelopeOutPath, "out", "o", "", "Write the result to a file instead of stdout")
		registerCompletion(cmd, completionInput{"out", fileCompletion})
	}
}
