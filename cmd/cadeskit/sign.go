package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/plugin"
)

var (
	signThumbprint     string
	signAttached       bool
	signExcludeChain   bool
	signSkipValidation bool
	signXMLType        string
	signOutPath        string
)

var signCmd = &cobra.Command{
	Use:   "sign <file>",
	Short: "Create a CAdES-BES signature of a file",
	Example: `  cadeskit sign contract.pdf -t A1B2... -o contract.pdf.sig
  cadeskit sign message.txt -t A1B2... --attached`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		return signWith(cmd, func(c *plugin.Client, cert *plugin.Certificate) (string, error) {
			return c.Sign(cmd.Context(), cert, data, signOptions())
		})
	},
}

var signHashCmd = &cobra.Command{
	Use:   "sign-hash <hex digest>",
	Short: "Sign a precomputed GOST R 34.11-2012 digest",
	Long: `Sign a GOST R 34.11-2012 digest computed elsewhere. The digest length must
match the certificate key: 32 bytes for 256-bit keys, 64 bytes for 512-bit keys.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		digest, err := hex.DecodeString(strings.ReplaceAll(args[0], " ", ""))
		if err != nil {
			return fmt.Errorf("decoding digest: %w", err)
		}
		return signWith(cmd, func(c *plugin.Client, cert *plugin.Certificate) (string, error) {
			return c.SignHash(cmd.Context(), cert, digest, signOptions())
		})
	},
}

var signXMLCmd = &cobra.Command{
	Use:   "sign-xml <file>",
	Short: "Create an XMLDSig signature of an XML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := parseXMLSignatureType(signXMLType)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		return signWith(cmd, func(c *plugin.Client, cert *plugin.Certificate) (string, error) {
			return c.SignXML(cmd.Context(), cert, data, typ, signOptions())
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{signCmd, signHashCmd, signXMLCmd} {
		cmd.Flags().StringVarP(&signThumbprint, "thumbprint", "t", "", "Thumbprint of the signing certificate")
		cmd.Flags().BoolVar(&signExcludeChain, "exclude-chain", false, "Include only the signer certificate")
		cmd.Flags().BoolVar(&signSkipValidation, "skip-validation", false, "Sign even when the certificate fails validation")
		cmd.Flags().StringVarP(&signOutPath, "out", "o", "", "Write the signature to a file instead of stdout")
		if err := cmd.MarkFlagRequired("thumbprint"); err != nil {
			panic(err)
		}
		registerCompletion(cmd, completionInput{"out", fileCompletion})
		registerCompletion(cmd, completionInput{"thumbprint", thumbprintCompletion})
	}
	signCmd.Flags().BoolVar(&signAttached, "attached", false, "Embed the content in the signature")
	signXMLCmd.Flags().StringVar(&signXMLType, "type", "enveloped", "Signature type: enveloped, enveloping or template")
	registerCompletion(signXMLCmd, completionInput{"type", fixedCompletion("enveloped", "enveloping", "template")})
}

func signOptions() plugin.SignOptions {
	return plugin.SignOptions{
		Attached:       signAttached,
		ExcludeChain:   signExcludeChain,
		SkipValidation: signSkipValidation,
	}
}

func signWith(cmd *cobra.Command, sign func(*plugin.Client, *plugin.Certificate) (string, error)) error {
	c, err := pluginClient()
	if err != nil {
		return err
	}
	cert, err := certificateByThumbprint(cmd, c, signThumbprint)
	if err != nil {
		return err
	}
	signature, err := sign(c, cert)
	if err != nil {
		return err
	}
	return writeOutput(cmd, signOutPath, []byte(signature+"\n"))
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func parseXMLSignatureType(s string) (cadeskit.XMLSignatureType, error) {
	switch s {
	case "enveloped":
		return cadeskit.XMLSignatureEnveloped, nil
	case "enveloping":
		return cadeskit.XMLSignatureEnveloping, nil
	case "template":
		return cadeskit.XMLSignatureTemplate, nil
	}
	return 0, fmt.Errorf("unknown XML signature type %q (use enveloped, enveloping or template)", s)
}
