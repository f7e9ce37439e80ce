package plugin

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/internal/hosttest"
	"github.com/sensiblebit/cadeskit/internal/testcert"
)

var modes = []struct {
	name  string
	async bool
}{
	{"sync", false},
	{"async", true},
}

func cryptoPro(major, minor, build int) cadeskit.CryptoProvider {
	return cadeskit.CryptoProvider{Name: cadeskit.CryptoProProviderName, Type: 80, MajorVersion: major, MinorVersion: minor, BuildVersion: build}
}

func vipNet(major, minor int) cadeskit.CryptoProvider {
	return cadeskit.CryptoProvider{Name: cadeskit.VipNetProviderName, Type: 2, MajorVersion: major, MinorVersion: minor}
}

// healthySystem returns a workstation that passes validation with empty
// stores.
func healthySystem() hosttest.System {
	return hosttest.System{
		PluginVersion: "2.0.15400",
		Providers:     []cadeskit.CryptoProvider{cryptoPro(5, 0, 12500)},
		Stores: map[cadeskit.StoreLocation][]*hosttest.Object{
			cadeskit.StoreCurrentUser: nil,
			cadeskit.StoreContainer:   nil,
		},
		License: hosttest.License{Valid: true, ValidTo: "31.12.2030", CompanyName: "ACME", SerialNumber: "50500-00000"},
	}
}

// newClient installs sys on a fresh host and returns a client over it.
func newClient(t *testing.T, async bool, sys hosttest.System, opts ...Option) (*Client, *hosttest.Host) {
	t.Helper()
	h := hosttest.New(async)
	h.Install(sys)
	h.InstallSigning(hosttest.SigningOptions{})
	return New(h.Loader(), opts...), h
}

// gostCert builds a fake host certificate for a GOST 2012-256 key.
func gostCert(h *hosttest.Host, cn string, serial int64, cert hosttest.CertOptions, mod ...func(*testcert.Options)) *hosttest.Object {
	opts := testcert.Options{
		Serial:  serial,
		Subject: []testcert.Attr{{OID: testcert.OIDCommonName, Value: cn}},
	}
	for _, m := range mod {
		m(&opts)
	}
	return h.Certificate(testcert.GOST(opts), cert)
}

func withKey() hosttest.CertOptions {
	return hosttest.CertOptions{HasPrivateKey: true, ProviderName: cadeskit.CryptoProProviderName, ProviderType: 80}
}

func ecdsaCert(t *testing.T, h *hosttest.Host, cn string) *hosttest.Object {
	t.Helper()
	der, err := testcert.ECDSA(cn)
	if err != nil {
		t.Fatal(err)
	}
	return h.Certificate(der, withKey())
}

// calls counts a member access in either calling convention.
func calls(h *hosttest.Host, call string) int {
	return h.Count(call) + h.Count(call+"Async")
}

// sets counts property assignments in either calling convention.
func sets(h *hosttest.Host, object, key string) int {
	return h.Count(object+"."+key+"=") + h.Count(object+".propset_"+key)
}

func requireCode(t *testing.T, err error, code string) *cadeskit.Error {
	t.Helper()
	var e *cadeskit.Error
	if !errors.As(err, &e) {
		t.Fatalf("error = %v, want *cadeskit.Error with code %s", err, code)
	}
	if e.Code != code {
		t.Fatalf("error code = %q (%v), want %q", e.Code, e, code)
	}
	return e
}

// captureTitles records the titles of errors constructed while the test
// runs, restricted to titles with the given prefix.
func captureTitles(t *testing.T, prefix string) func() []string {
	t.Helper()
	var mu sync.Mutex
	var titles []string
	remove := cadeskit.AddErrorListener(func(e *cadeskit.Error) {
		if strings.HasPrefix(e.Title, prefix) {
			mu.Lock()
			titles = append(titles, e.Title)
			mu.Unlock()
		}
	})
	t.Cleanup(remove)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), titles...)
	}
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}
