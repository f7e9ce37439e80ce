package cadeskit

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/sensiblebit/cadeskit/internal/testcert"
)

func TestDecode_GOSTCertificate(t *testing.T) {
	t.Parallel()

	notBefore := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	notAfter := time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)
	der := testcert.GOST(testcert.Options{
		Serial:       0x1A2B,
		Subject:      qualifiedSubject(),
		Issuer:       []testcert.Attr{{OID: testcert.OIDCommonName, Value: "Test CA"}},
		SubjectKeyID: []byte{0x01, 0xAB, 0xFF},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
	})

	d, err := Decode(base64.StdEncoding.EncodeToString(der))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Algorithm != OIDGost2012256 || !d.IsGOST {
		t.Errorf("algorithm = %q gost=%v, want %q gost=true", d.Algorithm, d.IsGOST, OIDGost2012256)
	}
	if d.SubjectKeyID == nil || *d.SubjectKeyID != "01ABFF" {
		t.Errorf("SubjectKeyID = %v, want 01ABFF", d.SubjectKeyID)
	}
	if got := d.Subject.Get(AttrCommonName); got != "Иванов Иван Иванович" {
		t.Errorf("CN = %q", got)
	}
	if got := d.Subject.Get(AttrCountry); got != "RU" {
		t.Errorf("C = %q", got)
	}
	// WHY: a twelve-character INN with "00" padding is a legal-entity INN.
	if got := d.Subject.Get(AttrINN); got != "7712345678" {
		t.Errorf("INN = %q, want 7712345678", got)
	}
	if got := d.Issuer.Get(AttrCommonName); got != "Test CA" {
		t.Errorf("issuer CN = %q", got)
	}
	if _, ok := d.Subject.Lookup(AttrOGRN); ok {
		t.Error("absent OGRN must have no entry")
	}
	if d.SerialNumber != "1A2B" {
		t.Errorf("SerialNumber = %q", d.SerialNumber)
	}
	if !d.NotBefore.Equal(notBefore) || !d.NotAfter.Equal(notAfter) {
		t.Errorf("validity = %v..%v", d.NotBefore, d.NotAfter)
	}
	if d.Thumbprint != Thumbprint(der) {
		t.Errorf("Thumbprint = %q", d.Thumbprint)
	}
}

func TestDecode_Algorithms(t *testing.T) {
	t.Parallel()

	ecdsaDER, err := testcert.ECDSA("ecdsa.example")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		der      []byte
		wantAlg  string
		wantGOST bool
	}{
		{
			name:     "GOST 2012 256",
			der:      testcert.GOST(testcert.Options{Algorithm: testcert.OIDGost2012256}),
			wantAlg:  OIDGost2012256,
			wantGOST: true,
		},
		{
			name:     "GOST 2012 512",
			der:      testcert.GOST(testcert.Options{Algorithm: testcert.OIDGost2012512}),
			wantAlg:  OIDGost2012512,
			wantGOST: true,
		},
		{
			name:    "ECDSA",
			der:     ecdsaDER,
			wantAlg: "1.2.840.10045.2.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := DecodeDER(tt.der)
			if err != nil {
				t.Fatalf("DecodeDER: %v", err)
			}
			if d.Algorithm != tt.wantAlg || d.IsGOST != tt.wantGOST {
				t.Errorf("got %q gost=%v, want %q gost=%v", d.Algorithm, d.IsGOST, tt.wantAlg, tt.wantGOST)
			}
		})
	}
}

func TestDecode_NoSubjectKeyID(t *testing.T) {
	t.Parallel()

	d, err := DecodeDER(testcert.GOST(testcert.Options{Subject: qualifiedSubject()}))
	if err != nil {
		t.Fatalf("DecodeDER: %v", err)
	}
	if d.SubjectKeyID != nil {
		t.Errorf("SubjectKeyID = %q, want nil", *d.SubjectKeyID)
	}
}

func TestDecode_ToleratesLineBreaks(t *testing.T) {
	t.Parallel()

	// WHY: COM hosts export Base64 with CRLF every 64 characters.
	b64 := testcert.GOSTBase64(testcert.Options{Subject: qualifiedSubject()})
	var wrapped strings.Builder
	for i := 0; i < len(b64); i += 64 {
		wrapped.WriteString(b64[i:min(i+64, len(b64))])
		wrapped.WriteString("\r\n")
	}
	if _, err := Decode(wrapped.String()); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantCode string
	}{
		{"empty", "", CodeMissingArgument},
		{"whitespace", "  \n", CodeMissingArgument},
		{"not base64", "%%%not-base64%%%", CodeCertificateParse},
		{"not a certificate", base64.StdEncoding.EncodeToString([]byte("hello")), CodeCertificateParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.input)
			if !IsCode(err, tt.wantCode) {
				t.Errorf("Decode(%q) error = %v, want code %s", tt.input, err, tt.wantCode)
			}
		})
	}
}

func TestNormalizeINN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"007712345678", "7712345678"},
		{"771234567890", "771234567890"},
		{"7712345678", "7712345678"},
		{"00", "00"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeINN(tt.in); got != tt.want {
			t.Errorf("NormalizeINN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAttributes_NamesInReportingOrder(t *testing.T) {
	t.Parallel()

	attrs := Attributes{AttrEmail: "a@b", AttrCommonName: "x", AttrINN: "1"}
	got := attrs.Names()
	want := []Attribute{AttrCommonName, AttrINN, AttrEmail}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
