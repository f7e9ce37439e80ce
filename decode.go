package cadeskit

import (
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	ctpkix "github.com/google/certificate-transparency-go/x509/pkix"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Decoded is the structured view of a certificate payload. Algorithm is the
// subject public key algorithm OID; SubjectKeyID is nil when the certificate
// has no Subject Key Identifier extension.
type Decoded struct {
	Algorithm    string     `json:"algorithm" yaml:"algorithm"`
	IsGOST       bool       `json:"is_gost" yaml:"is_gost"`
	SubjectKeyID *string    `json:"subject_key_id" yaml:"subject_key_id"`
	Subject      Attributes `json:"subject" yaml:"subject"`
	Issuer       Attributes `json:"issuer" yaml:"issuer"`
	SerialNumber string     `json:"serial_number" yaml:"serial_number"`
	NotBefore    time.Time  `json:"not_before" yaml:"not_before"`
	NotAfter     time.Time  `json:"not_after" yaml:"not_after"`
	Thumbprint   string     `json:"thumbprint" yaml:"thumbprint"`
}

// Decode decodes a Base64 DER certificate as exported by the host. Line
// breaks and other whitespace in the payload are ignored.
func Decode(b64 string) (*Decoded, error) {
	if strings.TrimSpace(b64) == "" {
		return nil, Missing("The certificate payload is empty.")
	}
	der, err := base64.StdEncoding.DecodeString(stripSpace(b64))
	if err != nil {
		return nil, NewError(CodeCertificateParse, "decoding certificate base64", err)
	}
	return DecodeDER(der)
}

// DecodeDER decodes a DER certificate. Non-fatal parse findings (odd string
// encodings common in national certificates) are tolerated.
func DecodeDER(der []byte) (*Decoded, error) {
	cert, err := ctx509.ParseCertificate(der)
	if ctx509.IsFatal(err) {
		return nil, NewError(CodeCertificateParse, "parsing certificate", err)
	}
	if cert == nil {
		return nil, NewError(CodeCertificateParse, "parsing certificate", errors.New("no certificate in payload"))
	}

	alg, err := publicKeyAlgorithm(cert.RawSubjectPublicKeyInfo)
	if err != nil {
		return nil, NewError(CodeCertificateParse, "reading public key algorithm", err)
	}

	d := &Decoded{
		Algorithm:  alg,
		IsGOST:     IsGOSTAlgorithm(alg),
		Subject:    attributesOf(cert.Subject),
		Issuer:     attributesOf(cert.Issuer),
		NotBefore:  cert.NotBefore.UTC(),
		NotAfter:   cert.NotAfter.UTC(),
		Thumbprint: Thumbprint(der),
	}
	if cert.SerialNumber != nil {
		d.SerialNumber = strings.ToUpper(cert.SerialNumber.Text(16))
	}
	for _, ext := range cert.Extensions {
		if ext.Id.String() == OIDSubjectKeyID {
			skid := strings.ToUpper(hex.EncodeToString(keyIdentifier(ext.Value)))
			d.SubjectKeyID = &skid
			break
		}
	}
	return d, nil
}

// publicKeyAlgorithm reads the algorithm OID out of a SubjectPublicKeyInfo.
func publicKeyAlgorithm(spki []byte) (string, error) {
	input := cryptobyte.String(spki)
	var info, algorithm cryptobyte.String
	var oid asn1.ObjectIdentifier
	if !input.ReadASN1(&info, cbasn1.SEQUENCE) {
		return "", errors.New("malformed subject public key info")
	}
	if !info.ReadASN1(&algorithm, cbasn1.SEQUENCE) {
		return "", errors.New("malformed public key algorithm identifier")
	}
	if !algorithm.ReadASN1ObjectIdentifier(&oid) {
		return "", errors.New("malformed public key algorithm OID")
	}
	return oid.String(), nil
}

// keyIdentifier unwraps the OCTET STRING of a Subject Key Identifier
// extension value. A value that is not a single OCTET STRING is returned as-is.
func keyIdentifier(value []byte) []byte {
	input := cryptobyte.String(value)
	var inner cryptobyte.String
	if input.ReadASN1(&inner, cbasn1.OCTET_STRING) && input.Empty() {
		return inner
	}
	return value
}

func attributesOf(name ctpkix.Name) Attributes {
	attrs := make(Attributes)
	for _, ao := range attributeOIDs {
		for _, atv := range name.Names {
			if atv.Type.String() != ao.oid {
				continue
			}
			v := attributeString(atv.Value)
			if ao.name == AttrINN || ao.name == AttrINNLE {
				v = NormalizeINN(v)
			}
			attrs[ao.name] = v
			break
		}
	}
	return attrs
}

func attributeString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// NormalizeINN strips the "00" padding some issuers put in front of a
// ten-digit legal-entity INN stored in a twelve-character field.
func NormalizeINN(inn string) string {
	if len(inn) == 12 && strings.HasPrefix(inn, "00") {
		return inn[2:]
	}
	return inn
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
