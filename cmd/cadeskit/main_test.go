package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
	"github.com/sensiblebit/cadeskit/internal/hosttest"
	"github.com/sensiblebit/cadeskit/internal/testcert"
)

// runCLI executes the root command against h. The command tree and its flag
// variables are process globals, so these tests do not run in parallel.
func runCLI(t *testing.T, h *hosttest.Host, args ...string) (string, error) {
	t.Helper()

	loader = func() host.Loader { return h.Loader() }
	clientOnce = sync.Once{}
	client, clientErr = nil, nil
	dbPath, configPath, outputFormat = "", "", ""
	findThumbprint, findSKID, findOffline, findContainers = "", "", false, false
	noValidate, resetCache, listContainers, listScope = false, false, false, "all"
	t.Cleanup(func() { cadeskit.SetDebug(false) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func workstation(t *testing.T) *hosttest.Host {
	t.Helper()
	h := hosttest.New(false)
	cert := h.Certificate(testcert.GOST(testcert.Options{
		Serial:  1,
		Subject: []testcert.Attr{{OID: testcert.OIDCommonName, Value: "Иванов Иван"}},
	}), hosttest.CertOptions{HasPrivateKey: true, ProviderName: cadeskit.CryptoProProviderName, ProviderType: 80})
	h.Install(hosttest.System{
		PluginVersion: "2.0.15400",
		Providers: []cadeskit.CryptoProvider{
			{Name: cadeskit.CryptoProProviderName, Type: 80, MajorVersion: 5, MinorVersion: 0, BuildVersion: 12500},
		},
		Stores: map[cadeskit.StoreLocation][]*hosttest.Object{
			cadeskit.StoreCurrentUser: {cert},
			cadeskit.StoreContainer:   nil,
		},
		License: hosttest.License{Valid: true, ValidTo: "31.12.2030", CompanyName: "ACME", SerialNumber: "50500-00000"},
	})
	h.InstallSigning(hosttest.SigningOptions{})
	return h
}

func TestListAndFindOffline(t *testing.T) {
	// WHY: The catalog written by list is the only source for offline
	// lookups; a certificate listed once must be found again without the
	// plugin, by a thumbprint pasted in lowercase.
	h := workstation(t)
	db := filepath.Join(t.TempDir(), "catalog.db")

	out, err := runCLI(t, h, "list", "--format", "json", "--db", db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed []struct {
		Name       string `json:"name"`
		Thumbprint string `json:"thumbprint"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Name != "Иванов Иван" {
		t.Fatalf("list = %+v, want one certificate for Иванов Иван", listed)
	}

	out, err = runCLI(t, h, "find", "--offline", "--db", db, "--format", "text", "--thumbprint", strings.ToLower(listed[0].Thumbprint))
	if err != nil {
		t.Fatalf("find --offline: %v", err)
	}
	if !strings.Contains(out, "Name:        Иванов Иван") || !strings.Contains(out, "Seen:") {
		t.Errorf("find --offline output:\n%s", out)
	}

	if _, err := runCLI(t, h, "find", "--offline", "--db", db, "--thumbprint", "00"); err == nil || !strings.Contains(err.Error(), "not found in catalog") {
		t.Errorf("find --offline unknown error = %v, want not found in catalog", err)
	}
}

func TestCheck(t *testing.T) {
	// WHY: check must exit non-zero with the domain code when the plugin is
	// too old, and still print the structured result.
	h := hosttest.New(false)
	h.Install(hosttest.System{
		PluginVersion: "2.0.12000",
		Providers: []cadeskit.CryptoProvider{
			{Name: cadeskit.CryptoProProviderName, Type: 80, MajorVersion: 5, MinorVersion: 0, BuildVersion: 12500},
		},
	})

	out, err := runCLI(t, h, "check", "--format", "json")
	if err == nil {
		t.Fatal("check succeeded on an unsupported plugin")
	}
	var res checkResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("check output is not JSON: %v\n%s", err, out)
	}
	if res.Valid || res.Code != cadeskit.CodeUnsupportedPlugin {
		t.Errorf("check = %+v, want invalid with code %s", res, cadeskit.CodeUnsupportedPlugin)
	}
}

func TestParseXMLSignatureType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    cadeskit.XMLSignatureType
		wantErr bool
	}{
		{in: "enveloped", want: cadeskit.XMLSignatureEnveloped},
		{in: "enveloping", want: cadeskit.XMLSignatureEnveloping},
		{in: "template", want: cadeskit.XMLSignatureTemplate},
		{in: "detached", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseXMLSignatureType(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseXMLSignatureType(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestCertificatePayload(t *testing.T) {
	// WHY: InstallResponse only takes text; a binary DER file from a CA must
	// be Base64 encoded while PEM and Base64 files pass through untouched.
	t.Parallel()

	der := testcert.GOST(testcert.Options{Serial: 9})
	b64 := testcert.GOSTBase64(testcert.Options{Serial: 9})
	pemData := "-----BEGIN CERTIFICATE-----\n" + b64 + "\n-----END CERTIFICATE-----\n"

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "der", in: der, want: b64},
		{name: "base64 wrapped", in: []byte(b64[:20] + "\r\n" + b64[20:] + "\n"), want: b64},
		{name: "pem", in: []byte(pemData), want: strings.TrimSpace(pemData)},
	}
	for _, tt := range tests {
		if got := certificatePayload(tt.in); got != tt.want {
			t.Errorf("certificatePayload(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWrap64(t *testing.T) {
	// WHY: The request returned by the plugin carries its own header and CRLF
	// line breaks; the written file must hold a single clean PEM body.
	t.Parallel()

	body := strings.Repeat("A", 100)
	in := "-----BEGIN NEW CERTIFICATE REQUEST-----\r\n" + body[:50] + "\r\n" + body[50:] + "\r\n-----END NEW CERTIFICATE REQUEST-----\r\n"
	want := body[:64] + "\n" + body[64:] + "\n"
	if got := wrap64(in); got != want {
		t.Errorf("wrap64() = %q, want %q", got, want)
	}
	if got := safeFileName(`a/b:c`); got != "a_b_c" {
		t.Errorf("safeFileName(%q) = %q, want %q", `a/b:c`, got, "a_b_c")
	}
}

func TestThumbprintCompletion(t *testing.T) {
	// WHY: Completion reads the catalog only; it must filter by a
	// lowercase prefix and stay silent when no catalog is configured.
	h := workstation(t)
	db := filepath.Join(t.TempDir(), "catalog.db")
	if _, err := runCLI(t, h, "list", "--format", "json", "--db", db); err != nil {
		t.Fatalf("list: %v", err)
	}
	t.Cleanup(func() { dbPath = "" })

	dbPath = ""
	if got, _ := thumbprintCompletion(nil, nil, ""); len(got) != 0 {
		t.Errorf("thumbprintCompletion without --db = %v, want none", got)
	}

	dbPath = db
	all, directive := thumbprintCompletion(nil, nil, "")
	if len(all) != 1 || directive != cobra.ShellCompDirectiveNoFileComp {
		t.Fatalf("thumbprintCompletion(%q) = %v, %v, want one suggestion", "", all, directive)
	}
	thumbprint, name, _ := strings.Cut(all[0], "\t")
	if name != "Иванов Иван" {
		t.Errorf("suggestion description = %q, want %q", name, "Иванов Иван")
	}
	if got, _ := thumbprintCompletion(nil, nil, strings.ToLower(thumbprint[:4])); len(got) != 1 {
		t.Errorf("thumbprintCompletion(%q) = %v, want one suggestion", strings.ToLower(thumbprint[:4]), got)
	}
	if got, _ := thumbprintCompletion(nil, nil, "ZZ"); len(got) != 0 {
		t.Errorf("thumbprintCompletion(%q) = %v, want none", "ZZ", got)
	}
}
