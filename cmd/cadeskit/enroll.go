package main

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/internal"
)

var (
	installPIN     string
	installPINFile string
	csrConfigPath  string
	csrOutDir      string
)

var installCmd = &cobra.Command{
	Use:   "install <file>",
	Short: "Install an issued certificate into its key container",
	Long: `Install the certificate issued for a request created with "cadeskit csr".
The file may hold PEM, DER or Base64. When the PIN is not given the CSP prompts
for it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

var csrCmd = &cobra.Command{
	Use:   "csr",
	Short: "Generate a key container and a PKCS#10 request",
	Long: `Generate a key in a new container and create a certificate request for it,
following a YAML config of one or more requests. Each request is written to
<container>.csr in the output directory.`,
	Example: `  cadeskit csr --config request.yaml
  cadeskit csr --config requests.yaml --out ./requests`,
	Args: cobra.NoArgs,
	RunE: runCSR,
}

func init() {
	installCmd.Flags().StringVar(&installPIN, "pin", "", "Container PIN")
	installCmd.Flags().StringVar(&installPINFile, "pin-file", "", "File whose first line is the container PIN")
	installCmd.MarkFlagsMutuallyExclusive("pin", "pin-file")
	registerCompletion(installCmd, completionInput{"pin-file", fileCompletion})

	csrCmd.Flags().StringVar(&csrConfigPath, "config", "", "CSR YAML config")
	csrCmd.Flags().StringVarP(&csrOutDir, "out", "o", ".", "Output directory for generated requests")
	if err := csrCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	registerCompletion(csrCmd, completionInput{"config", fileCompletion})
	registerCompletion(csrCmd, completionInput{"out", directoryCompletion})
}

func runInstall(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	pin, err := internal.ResolvePIN(installPIN, cmd.Flags().Changed("pin"), installPINFile)
	if err != nil {
		return err
	}
	c, err := pluginClient()
	if err != nil {
		return err
	}
	var pinValue string
	if pin != nil {
		pinValue = *pin
	}
	if err := c.InstallCertificate(cmd.Context(), certificatePayload(data), pinValue); err != nil {
		return err
	}
	slog.Info("certificate installed", "file", args[0])
	return nil
}

func runCSR(cmd *cobra.Command, _ []string) error {
	requests, err := internal.LoadCSRConfigs(csrConfigPath)
	if err != nil {
		return err
	}
	c, err := pluginClient()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(csrOutDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, req := range requests {
		csr, err := c.CreateCSR(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("creating request for container %s: %w", req.ContainerName, err)
		}
		path := filepath.Join(csrOutDir, safeFileName(req.ContainerName)+".csr")
		pemData := "-----BEGIN CERTIFICATE REQUEST-----\n" + wrap64(csr) + "-----END CERTIFICATE REQUEST-----\n"
		if err := os.WriteFile(path, []byte(pemData), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		slog.Info("certificate request created", "container", req.ContainerName, "path", path)
	}
	return nil
}

// certificatePayload returns file content in a form InstallResponse accepts:
// PEM and Base64 pass through, binary DER is Base64 encoded.
func certificatePayload(data []byte) string {
	if cadeskit.IsPEM(data) {
		return strings.TrimSpace(string(data))
	}
	compact := strings.Join(strings.Fields(string(data)), "")
	if _, err := base64.StdEncoding.DecodeString(compact); err == nil && compact != "" {
		return compact
	}
	return base64.StdEncoding.EncodeToString(data)
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

// wrap64 strips whitespace and headers from a Base64 request and wraps it at
// 64 columns.
func wrap64(b64 string) string {
	var body strings.Builder
	for _, line := range strings.Split(b64, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		body.WriteString(line)
	}
	s := body.String()
	var sb strings.Builder
	for len(s) > 64 {
		sb.WriteString(s[:64] + "\n")
		s = s[64:]
	}
	if s != "" {
		sb.WriteString(s + "\n")
	}
	return sb.String()
}
