package cadeskit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/sensiblebit/cadeskit/internal/testcert"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// generateLeaf creates a self-signed ECDSA certificate and its key.
func generateLeaf(t *testing.T, cn string) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(7),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return der, key
}

func toPEM(der ...[]byte) []byte {
	var out []byte
	for _, d := range der {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: d})...)
	}
	return out
}

// qualifiedSubject is the subject of a typical qualified certificate issued
// to an individual entrepreneur.
func qualifiedSubject() []testcert.Attr {
	return []testcert.Attr{
		{OID: testcert.OIDCommonName, Value: "Иванов Иван Иванович"},
		{OID: testcert.OIDSurname, Value: "Иванов"},
		{OID: testcert.OIDGivenName, Value: "Иван Иванович"},
		{OID: testcert.OIDCountry, Value: "RU", Tag: cbasn1.PrintableString},
		{OID: testcert.OIDINN, Value: "007712345678"},
		{OID: testcert.OIDSNILS, Value: "12345678901"},
		{OID: testcert.OIDEmail, Value: "ivanov@example.ru", Tag: cbasn1.IA5String},
	}
}

// captureErrors records every Error constructed while the test runs. Tests
// using it must not run in parallel with other error-producing tests that
// assert on the capture.
func captureErrors(t *testing.T) func() []*Error {
	t.Helper()
	var mu sync.Mutex
	var got []*Error
	remove := AddErrorListener(func(e *Error) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	t.Cleanup(remove)
	return func() []*Error {
		mu.Lock()
		defer mu.Unlock()
		return append([]*Error(nil), got...)
	}
}
