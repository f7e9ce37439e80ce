// Package testcert builds certificates for tests. GOST certificates cannot be
// produced with crypto/x509, so they are assembled as raw DER with
// cryptobyte and carry a dummy signature; they parse but never verify.
package testcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"math/big"
	"time"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Object identifiers used by the builder.
var (
	OIDGost2012256     = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 1, 1, 1}
	OIDGost2012512     = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 1, 1, 2}
	OIDGostSign256     = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 1, 3, 2}
	OIDGostParamSetA   = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 2, 1, 1, 1}
	OIDGostDigest256   = asn1.ObjectIdentifier{1, 2, 643, 7, 1, 1, 2, 2}
	OIDSubjectKeyID    = asn1.ObjectIdentifier{2, 5, 29, 14}
	OIDCommonName      = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDSurname         = asn1.ObjectIdentifier{2, 5, 4, 4}
	OIDCountry         = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDOrganization    = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDTitle           = asn1.ObjectIdentifier{2, 5, 4, 12}
	OIDGivenName       = asn1.ObjectIdentifier{2, 5, 4, 42}
	OIDEmail           = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	OIDOGRN            = asn1.ObjectIdentifier{1, 2, 643, 100, 1}
	OIDSNILS           = asn1.ObjectIdentifier{1, 2, 643, 100, 3}
	OIDINNLE           = asn1.ObjectIdentifier{1, 2, 643, 100, 4}
	OIDINN             = asn1.ObjectIdentifier{1, 2, 643, 3, 131, 1, 1}
	OIDSubjectSignTool = asn1.ObjectIdentifier{1, 2, 643, 100, 111}
)

// Attr is one relative distinguished name. Tag defaults to UTF8String.
type Attr struct {
	OID   asn1.ObjectIdentifier
	Value string
	Tag   cbasn1.Tag
}

// Options describes a GOST certificate.
type Options struct {
	// Algorithm is the public key algorithm; defaults to GOST R 34.10-2012 256.
	Algorithm asn1.ObjectIdentifier
	Serial    int64
	Subject   []Attr
	Issuer    []Attr
	// SubjectKeyID adds a Subject Key Identifier extension when non-nil.
	SubjectKeyID []byte
	NotBefore    time.Time
	NotAfter     time.Time
}

// GOST assembles a DER certificate from opts.
func GOST(opts Options) []byte {
	alg := opts.Algorithm
	if alg == nil {
		alg = OIDGost2012256
	}
	if opts.Serial == 0 {
		opts.Serial = 1
	}
	if opts.NotBefore.IsZero() {
		opts.NotBefore = time.Now().Add(-time.Hour)
	}
	if opts.NotAfter.IsZero() {
		opts.NotAfter = time.Now().Add(365 * 24 * time.Hour)
	}
	if opts.Issuer == nil {
		opts.Issuer = opts.Subject
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cbasn1.SEQUENCE, func(cert *cryptobyte.Builder) {
		cert.AddASN1(cbasn1.SEQUENCE, func(tbs *cryptobyte.Builder) {
			tbs.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(v *cryptobyte.Builder) {
				v.AddASN1Int64(2)
			})
			tbs.AddASN1Int64(opts.Serial)
			addAlgorithm(tbs, OIDGostSign256, false)
			addName(tbs, opts.Issuer)
			tbs.AddASN1(cbasn1.SEQUENCE, func(v *cryptobyte.Builder) {
				addTime(v, opts.NotBefore)
				addTime(v, opts.NotAfter)
			})
			addName(tbs, opts.Subject)
			tbs.AddASN1(cbasn1.SEQUENCE, func(spki *cryptobyte.Builder) {
				addAlgorithm(spki, alg, true)
				key := cryptobyte.NewBuilder(nil)
				key.AddASN1OctetString(filler(64))
				spki.AddASN1BitString(key.BytesOrPanic())
			})
			if opts.SubjectKeyID != nil {
				tbs.AddASN1(cbasn1.Tag(3).Constructed().ContextSpecific(), func(e *cryptobyte.Builder) {
					e.AddASN1(cbasn1.SEQUENCE, func(exts *cryptobyte.Builder) {
						exts.AddASN1(cbasn1.SEQUENCE, func(ext *cryptobyte.Builder) {
							ext.AddASN1ObjectIdentifier(OIDSubjectKeyID)
							value := cryptobyte.NewBuilder(nil)
							value.AddASN1OctetString(opts.SubjectKeyID)
							ext.AddASN1OctetString(value.BytesOrPanic())
						})
					})
				})
			}
		})
		addAlgorithm(cert, OIDGostSign256, false)
		cert.AddASN1BitString(filler(64))
	})
	return b.BytesOrPanic()
}

// GOSTBase64 returns GOST(opts) in the Base64 form the host exports.
func GOSTBase64(opts Options) string {
	return base64.StdEncoding.EncodeToString(GOST(opts))
}

// ECDSA returns a self-signed P-256 certificate for the given common name.
func ECDSA(commonName string) ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		SubjectKeyId: []byte{0xAB, 0xCD},
	}
	return x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
}

func addAlgorithm(b *cryptobyte.Builder, oid asn1.ObjectIdentifier, withParams bool) {
	b.AddASN1(cbasn1.SEQUENCE, func(a *cryptobyte.Builder) {
		a.AddASN1ObjectIdentifier(oid)
		if withParams {
			a.AddASN1(cbasn1.SEQUENCE, func(p *cryptobyte.Builder) {
				p.AddASN1ObjectIdentifier(OIDGostParamSetA)
				p.AddASN1ObjectIdentifier(OIDGostDigest256)
			})
		}
	})
}

func addName(b *cryptobyte.Builder, attrs []Attr) {
	b.AddASN1(cbasn1.SEQUENCE, func(name *cryptobyte.Builder) {
		for _, attr := range attrs {
			tag := attr.Tag
			if tag == 0 {
				tag = cbasn1.UTF8String
			}
			name.AddASN1(cbasn1.SET, func(rdn *cryptobyte.Builder) {
				rdn.AddASN1(cbasn1.SEQUENCE, func(atv *cryptobyte.Builder) {
					atv.AddASN1ObjectIdentifier(attr.OID)
					atv.AddASN1(tag, func(v *cryptobyte.Builder) {
						v.AddBytes([]byte(attr.Value))
					})
				})
			})
		}
	})
}

func addTime(b *cryptobyte.Builder, t time.Time) {
	b.AddASN1(cbasn1.UTCTime, func(v *cryptobyte.Builder) {
		v.AddBytes([]byte(t.UTC().Format("060102150405Z")))
	})
}

func filler(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i + 1)
	}
	return out
}
