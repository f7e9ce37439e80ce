package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sensiblebit/cadeskit/plugin"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csr.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCSRConfigs_DefaultsAreMerged(t *testing.T) {
	// WHY: Requests inherit provider, key usage and subject attributes from
	// defaults; a request's own subject value must override the default one
	// for the same attribute without dropping the others.
	t.Parallel()
	path := writeConfig(t, `
defaults:
  provider_name: "Crypto-Pro GOST R 34.10-2012 Cryptographic Service Provider"
  provider_type: 80
  key_usage: 240
  enhanced_key_usage: ["1.3.6.1.5.5.7.3.2"]
  sign_tool: "CryptoPro CSP"
  exportable: true
  subject:
    C: RU
    O: "ООО Ромашка"
requests:
  - container_name: first
    subject:
      CN: "Иванов Иван"
      O: "ООО Лютик"
  - container_name: second
    provider_type: 81
    exportable: false
    subject:
      cn: "Петров Петр"
      1.2.643.100.4: "7712345678"
`)

	reqs, err := LoadCSRConfigs(path)
	if err != nil {
		t.Fatalf("LoadCSRConfigs: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("LoadCSRConfigs returned %d requests, want 2", len(reqs))
	}

	first := reqs[0]
	if first.ProviderType != 80 || first.KeyUsage != 240 || !first.Exportable {
		t.Errorf("first request defaults not applied: %+v", first)
	}
	wantFirst := []plugin.CSRAttribute{
		{OID: "2.5.4.3", Value: "Иванов Иван"},
		{OID: "2.5.4.6", Value: "RU"},
		{OID: "2.5.4.10", Value: "ООО Лютик"},
	}
	assertAttributes(t, first.Attributes, wantFirst)

	second := reqs[1]
	if second.ProviderType != 81 {
		t.Errorf("second.ProviderType = %d, want 81", second.ProviderType)
	}
	if second.Exportable {
		t.Error("second.Exportable = true, want explicit false to win")
	}
	if len(second.EnhancedKeyUsage) != 1 || second.SignTool != "CryptoPro CSP" {
		t.Errorf("second request defaults not applied: %+v", second)
	}
	wantSecond := []plugin.CSRAttribute{
		{OID: "2.5.4.3", Value: "Петров Петр"},
		{OID: "2.5.4.6", Value: "RU"},
		{OID: "2.5.4.10", Value: "ООО Ромашка"},
		{OID: "1.2.643.100.4", Value: "7712345678"},
	}
	assertAttributes(t, second.Attributes, wantSecond)
}

func TestLoadCSRConfigs_SingleRequest(t *testing.T) {
	// WHY: A file holding one request without the requests list is the
	// common case for a single enrollment and must not be rejected.
	t.Parallel()
	path := writeConfig(t, `
container_name: single
provider_type: 80
subject:
  CN: Test
`)
	reqs, err := LoadCSRConfigs(path)
	if err != nil {
		t.Fatalf("LoadCSRConfigs: %v", err)
	}
	if len(reqs) != 1 || reqs[0].ContainerName != "single" {
		t.Fatalf("LoadCSRConfigs = %+v, want one request for container single", reqs)
	}
	assertAttributes(t, reqs[0].Attributes, []plugin.CSRAttribute{{OID: "2.5.4.3", Value: "Test"}})
}

func TestLoadCSRConfigs_Errors(t *testing.T) {
	// WHY: A typo in an attribute name would otherwise silently drop a
	// subject field from a qualified certificate request.
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown attribute", content: "subject:\n  XYZ: abc\n", wantErr: `unknown subject attribute "XYZ"`},
		{name: "malformed oid", content: "subject:\n  1..2: x\n", wantErr: "unknown subject attribute"},
		{name: "invalid yaml", content: "subject: [unclosed\n", wantErr: "parsing CSR config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadCSRConfigs(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadCSRConfigs error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadCSRConfigs(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func assertAttributes(t *testing.T, got, want []plugin.CSRAttribute) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("attributes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attribute[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
