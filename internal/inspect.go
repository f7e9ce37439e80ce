package internal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sensiblebit/cadeskit"
)

// InspectResult holds the decoded view of one certificate found in a file.
type InspectResult struct {
	Source       string              `json:"source" yaml:"source"`
	Subject      cadeskit.Attributes `json:"subject" yaml:"subject"`
	Issuer       cadeskit.Attributes `json:"issuer" yaml:"issuer"`
	SerialNumber string              `json:"serial_number" yaml:"serial_number"`
	NotBefore    string              `json:"not_before" yaml:"not_before"`
	NotAfter     string              `json:"not_after" yaml:"not_after"`
	Algorithm    string              `json:"algorithm" yaml:"algorithm"`
	IsGOST       bool                `json:"is_gost" yaml:"is_gost"`
	Thumbprint   string              `json:"thumbprint" yaml:"thumbprint"`
	SubjectKeyID string              `json:"subject_key_id,omitempty" yaml:"subject_key_id,omitempty"`
}

// jksMagic starts every Java KeyStore.
var jksMagic = []byte{0xFE, 0xED, 0xFE, 0xED}

// InspectFile reads a file and returns inspection results for all
// certificates found. PEM, DER, Base64 DER (the host export form), PKCS#7,
// JKS and PKCS#12 are recognized; keystores are opened with passwords.
func InspectFile(path string, passwords []string) ([]InspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	source, ders := extractCertificates(data, passwords)
	if len(ders) == 0 {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}

	var results []InspectResult
	for _, der := range ders {
		decoded, err := cadeskit.DecodeDER(der)
		if err != nil {
			return nil, fmt.Errorf("decoding certificate from %s: %w", path, err)
		}
		results = append(results, inspectDecoded(source, decoded))
	}
	return results, nil
}

func extractCertificates(data []byte, passwords []string) (string, [][]byte) {
	if cadeskit.IsPEM(data) {
		if ders, err := cadeskit.ParsePEMCertificates(data); err == nil {
			return "pem", ders
		}
		return "", nil
	}

	if _, err := cadeskit.DecodeDER(data); err == nil {
		return "der", [][]byte{data}
	}

	if ders, err := cadeskit.DecodePKCS7(data); err == nil {
		return "pkcs7", ders
	}

	if bytes.HasPrefix(data, jksMagic) {
		for _, password := range passwords {
			if ders, err := cadeskit.DecodeJKS(data, password); err == nil {
				return "jks", ders
			}
		}
		return "", nil
	}

	if der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(data)), "")); err == nil && len(der) > 0 {
		if _, err := cadeskit.DecodeDER(der); err == nil {
			return "base64", [][]byte{der}
		}
	}

	// Try PKCS#12 as last resort
	for _, password := range passwords {
		if ders, err := cadeskit.DecodePKCS12(data, password); err == nil {
			return "pkcs12", ders
		}
	}
	return "", nil
}

func inspectDecoded(source string, d *cadeskit.Decoded) InspectResult {
	r := InspectResult{
		Source:       source,
		Subject:      d.Subject,
		Issuer:       d.Issuer,
		SerialNumber: d.SerialNumber,
		NotBefore:    d.NotBefore.UTC().Format(time.RFC3339),
		NotAfter:     d.NotAfter.UTC().Format(time.RFC3339),
		Algorithm:    d.Algorithm,
		IsGOST:       d.IsGOST,
		Thumbprint:   d.Thumbprint,
	}
	if d.SubjectKeyID != nil {
		r.SubjectKeyID = *d.SubjectKeyID
	}
	return r
}

// FormatInspectResults formats inspection results as text, JSON or YAML.
func FormatInspectResults(results []InspectResult, format string) (string, error) {
	return Render(format, results, func(sb *strings.Builder) {
		for i, r := range results {
			if i > 0 {
				sb.WriteString("\n")
			}
			fmt.Fprintf(sb, "Certificate (%s):\n", r.Source)
			fmt.Fprintf(sb, "  Subject:     %s\n", FormatAttributes(r.Subject))
			fmt.Fprintf(sb, "  Issuer:      %s\n", FormatAttributes(r.Issuer))
			fmt.Fprintf(sb, "  Serial:      %s\n", r.SerialNumber)
			fmt.Fprintf(sb, "  Not Before:  %s\n", r.NotBefore)
			fmt.Fprintf(sb, "  Not After:   %s\n", r.NotAfter)
			fmt.Fprintf(sb, "  Algorithm:   %s%s\n", r.Algorithm, gostSuffix(r.IsGOST))
			fmt.Fprintf(sb, "  Thumbprint:  %s\n", r.Thumbprint)
			if r.SubjectKeyID != "" {
				fmt.Fprintf(sb, "  SKI:         %s\n", r.SubjectKeyID)
			}
		}
	})
}

func gostSuffix(gost bool) string {
	if gost {
		return " (GOST)"
	}
	return ""
}
