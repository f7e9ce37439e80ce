package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/internal/hosttest"
	"github.com/sensiblebit/cadeskit/internal/testcert"
)

func TestClient_NewCertificate(t *testing.T) {
	t.Parallel()

	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			t.Parallel()
			c, h := newClient(t, m.async, healthySystem())
			notBefore := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
			notAfter := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			obj := gostCert(h, "Ivanov Ivan", 10, withKey(), func(o *testcert.Options) {
				o.Subject = append(o.Subject,
					testcert.Attr{OID: testcert.OIDINN, Value: "007712345678"},
					testcert.Attr{OID: testcert.OIDSNILS, Value: "12345678901"})
				o.Issuer = []testcert.Attr{{OID: testcert.OIDCommonName, Value: "Test CA"}}
				o.SubjectKeyID = []byte{0xde, 0xad, 0xbe, 0xef}
				o.NotBefore = notBefore
				o.NotAfter = notAfter
			})

			cert, err := c.NewCertificate(context.Background(), Raw{Object: obj})
			if err != nil {
				t.Fatalf("NewCertificate: %v", err)
			}

			checks := []struct {
				field     string
				got, want any
			}{
				{"Name", cert.Name, "Ivanov Ivan"},
				{"IssuerName", cert.IssuerName, "Test CA"},
				{"Thumbprint", cert.Thumbprint, obj.Prop("Thumbprint")},
				{"Algorithm", cert.Algorithm, cadeskit.OIDGost2012256},
				{"IsGOST", cert.IsGOST, true},
				{"HasPrivateKey", cert.HasPrivateKey, true},
				{"ProviderName", cert.ProviderName, cadeskit.CryptoProProviderName},
				{"ProviderType", cert.ProviderType, 80},
				{"INN", cert.Subject.Get(cadeskit.AttrINN), "7712345678"},
				{"SNILS", cert.Subject.Get(cadeskit.AttrSNILS), "12345678901"},
				{"Issuer CN", cert.Issuer.Get(cadeskit.AttrCommonName), "Test CA"},
			}
			for _, chk := range checks {
				if chk.got != chk.want {
					t.Errorf("%s = %v, want %v", chk.field, chk.got, chk.want)
				}
			}
			if !cert.NotBefore.Equal(notBefore) || !cert.NotAfter.Equal(notAfter) {
				t.Errorf("validity = %v..%v, want %v..%v", cert.NotBefore, cert.NotAfter, notBefore, notAfter)
			}
			if cert.SubjectKeyID == nil || *cert.SubjectKeyID != "DEADBEEF" {
				t.Errorf("SubjectKeyID = %v, want DEADBEEF", cert.SubjectKeyID)
			}
			if cert.Handle() != obj {
				t.Error("Handle() does not return the source object")
			}
		})
	}
}

func TestClient_NewCertificate_Idempotent(t *testing.T) {
	t.Parallel()

	c, h := newClient(t, false, healthySystem())
	cert, err := c.NewCertificate(context.Background(), Raw{Object: gostCert(h, "idem", 11, withKey())})
	if err != nil {
		t.Fatalf("NewCertificate: %v", err)
	}
	before := len(h.Calls())
	again, err := c.NewCertificate(context.Background(), cert)
	if err != nil {
		t.Fatalf("NewCertificate(*Certificate): %v", err)
	}
	if again != cert {
		t.Error("NewCertificate(*Certificate) returned a different value")
	}
	if after := len(h.Calls()); after != before {
		t.Errorf("normalizing a normalized certificate made %d host calls", after-before)
	}
}

func TestClient_NewCertificate_MissingRef(t *testing.T) {
	t.Parallel()

	var nilCert *Certificate
	tests := []struct {
		name string
		ref  CertificateRef
	}{
		{"nil", nil},
		{"nil pointer", nilCert},
		{"empty raw", Raw{}},
		{"certificate without handle", &Certificate{Name: "detached"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, h := newClient(t, false, healthySystem())
			_, err := c.NewCertificate(context.Background(), tt.ref)
			requireCode(t, err, cadeskit.CodeMissingArgument)
			// WHY: the argument check runs before the plugin is loaded.
			if h.Loads() != 0 {
				t.Errorf("Loads() = %d, want 0", h.Loads())
			}
		})
	}
}

func TestClient_NewCertificate_PrivateKeyFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	titles := captureTitles(t, "failed to read certificate private key")
	c, h := newClient(t, true, healthySystem())
	obj := gostCert(h, "token removed", 12, hosttest.CertOptions{
		PrivateKeyErr: &hostFault{msg: "The smart card was removed. (0x80100069)"},
	})

	cert, err := c.NewCertificate(context.Background(), Raw{Object: obj})
	if err != nil {
		t.Fatalf("NewCertificate: %v", err)
	}
	if cert.HasPrivateKey || cert.ProviderName != "" || cert.ProviderType != 0 {
		t.Errorf("key flags = %v %q %d, want cleared", cert.HasPrivateKey, cert.ProviderName, cert.ProviderType)
	}
	if got := titles(); len(got) == 0 {
		t.Error("private key failure was not reported to error listeners")
	}
}

func TestClient_NewCertificate_NonGOST(t *testing.T) {
	t.Parallel()

	c, h := newClient(t, false, healthySystem())
	cert, err := c.NewCertificate(context.Background(), Raw{Object: ecdsaCert(t, h, "ecdsa.example")})
	if err != nil {
		t.Fatalf("NewCertificate: %v", err)
	}
	if cert.IsGOST {
		t.Error("IsGOST = true for an ECDSA certificate")
	}
	if cert.Algorithm != "1.2.840.10045.2.1" {
		t.Errorf("Algorithm = %q, want id-ecPublicKey", cert.Algorithm)
	}
}

func TestClient_NewCertificate_BrokenExport(t *testing.T) {
	t.Parallel()

	c, h := newClient(t, false, healthySystem())
	obj := gostCert(h, "broken", 13, withKey())
	obj.OnCall("Export", func(...any) (any, error) { return "not base64!", nil })

	_, err := c.NewCertificate(context.Background(), Raw{Object: obj})
	requireCode(t, err, cadeskit.CodeCertificateParse)
}

func TestClient_CertInfo(t *testing.T) {
	t.Parallel()

	c, h := newClient(t, true, healthySystem())
	obj := gostCert(h, "info", 14, withKey(), func(o *testcert.Options) {
		o.Subject = append(o.Subject, testcert.Attr{OID: testcert.OIDEmail, Value: "info@example.ru", Tag: 22})
	})

	got, err := c.CertInfo(context.Background(), Raw{Object: obj}, cadeskit.CertInfoSubjectEmailName)
	if err != nil {
		t.Fatalf("CertInfo: %v", err)
	}
	if got != "info@example.ru" {
		t.Errorf("CertInfo(email) = %q, want %q", got, "info@example.ru")
	}
	if _, err := c.CertInfo(context.Background(), nil, cadeskit.CertInfoSubjectSimpleName); !cadeskit.IsCode(err, cadeskit.CodeMissingArgument) {
		t.Errorf("CertInfo(nil) = %v, want CBP-7", err)
	}
}

func TestClient_ValidateCertificate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	validity := func(from, to time.Time) func(*testcert.Options) {
		return func(o *testcert.Options) { o.NotBefore, o.NotAfter = from, to }
	}
	current := validity(now.AddDate(-1, 0, 0), now.AddDate(1, 0, 0))

	tests := []struct {
		name   string
		build  func(*testing.T, *hosttest.Host) *hosttest.Object
		wantOK bool
		want   string
	}{
		{
			name:   "valid",
			build:  func(_ *testing.T, h *hosttest.Host) *hosttest.Object { return gostCert(h, "ok", 20, withKey(), current) },
			wantOK: true,
		},
		{
			name: "no private key",
			build: func(_ *testing.T, h *hosttest.Host) *hosttest.Object {
				return gostCert(h, "nokey", 21, hosttest.CertOptions{}, current)
			},
			want: "The certificate failed validation: the private key is not available.",
		},
		{
			name: "expired",
			build: func(_ *testing.T, h *hosttest.Host) *hosttest.Object {
				return gostCert(h, "old", 22, withKey(), validity(now.AddDate(-3, 0, 0), now.AddDate(0, 0, -1)))
			},
			want: "The certificate failed validation: the certificate has expired.",
		},
		{
			name: "not yet valid",
			build: func(_ *testing.T, h *hosttest.Host) *hosttest.Object {
				return gostCert(h, "future", 23, withKey(), validity(now.AddDate(0, 0, 1), now.AddDate(2, 0, 0)))
			},
			want: "The certificate failed validation: the certificate is not yet valid.",
		},
		{
			// WHY: the ECDSA fixture is valid around the real clock, which the
			// fixed test clock is far from.
			name: "not gost",
			build: func(t *testing.T, h *hosttest.Host) *hosttest.Object {
				return ecdsaCert(t, h, "ecdsa")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, h := newClient(t, false, healthySystem(), fixedClock(now))
			got, err := c.ValidateCertificate(context.Background(), Raw{Object: tt.build(t, h)}, nil)
			if err != nil {
				t.Fatalf("ValidateCertificate: %v", err)
			}
			switch {
			case tt.wantOK && got != "":
				t.Errorf("ValidateCertificate = %q, want valid", got)
			case tt.want != "" && got != tt.want:
				t.Errorf("ValidateCertificate = %q, want %q", got, tt.want)
			case !tt.wantOK && got == "":
				t.Error("ValidateCertificate passed an invalid certificate")
			}
		})
	}
}

func TestClient_ValidateCertificate_Custom(t *testing.T) {
	t.Parallel()

	c, h := newClient(t, false, healthySystem())
	obj := gostCert(h, "custom", 30, hosttest.CertOptions{})

	var seen *Certificate
	got, err := c.ValidateCertificate(context.Background(), Raw{Object: obj}, func(_ context.Context, cert *Certificate) (string, error) {
		seen = cert
		return "", nil
	})
	if err != nil {
		t.Fatalf("ValidateCertificate: %v", err)
	}
	// WHY: a custom check replaces the default rules entirely.
	if got != "" {
		t.Errorf("ValidateCertificate = %q, want custom verdict", got)
	}
	if seen == nil || seen.Name != "custom" {
		t.Errorf("custom check saw %+v", seen)
	}

	boom := errors.New("boom")
	if _, err := c.ValidateCertificate(context.Background(), Raw{Object: obj}, func(context.Context, *Certificate) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Errorf("ValidateCertificate error = %v, want %v", err, boom)
	}
}

// hostFault is a host error carrying only a message.
type hostFault struct {
	msg string
}

func (f *hostFault) Error() string { return f.msg }
