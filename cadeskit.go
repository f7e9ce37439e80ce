// Package cadeskit provides the domain model of the CryptoPro CAdES browser
// plugin adapter: the error model, GOST certificate decoding, version gates,
// provider tables, settings, and offline certificate container decoding.
package cadeskit

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	ctx509 "github.com/google/certificate-transparency-go/x509"
)

// ParsePEMCertificates returns the DER bytes of every CERTIFICATE block in a
// PEM bundle. The blocks are not parsed.
func ParsePEMCertificates(pemData []byte) ([][]byte, error) {
	var ders [][]byte
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		ders = append(ders, block.Bytes)
	}
	if len(ders) == 0 {
		return nil, errors.New("no certificates found in PEM data")
	}
	return ders, nil
}

// ParseCertificatesAny returns certificate DER blobs from raw bytes, trying a
// single DER certificate first, then PEM, then a PKCS#7 bundle.
func ParseCertificatesAny(data []byte) ([][]byte, error) {
	_, derErr := ctx509.ParseCertificate(data)
	if !ctx509.IsFatal(derErr) {
		return [][]byte{data}, nil
	}
	ders, pemErr := ParsePEMCertificates(data)
	if pemErr == nil {
		return ders, nil
	}
	ders, p7Err := DecodePKCS7(data)
	if p7Err == nil {
		return ders, nil
	}
	return nil, fmt.Errorf("not DER (%v) or PEM (%v) or PKCS#7 (%v)", derErr, pemErr, p7Err)
}

// IsPEM reports whether data looks like PEM.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

// Thumbprint returns the SHA-1 of a DER certificate as uppercase hex, the
// form the host reports in Certificate.Thumbprint.
func Thumbprint(der []byte) string {
	sum := sha1.Sum(der)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// NormalizeThumbprint uppercases a thumbprint and drops separators so that
// values copied from system dialogs compare equal to host values.
func NormalizeThumbprint(s string) string {
	s = strings.NewReplacer(" ", "", ":", "", "\u200e", "", "\u200f", "").Replace(s)
	return strings.ToUpper(s)
}

// ColonHex formats bytes as colon-separated uppercase hex pairs.
func ColonHex(b []byte) string {
	h := strings.ToUpper(hex.EncodeToString(b))
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		end := min(i+2, len(h))
		parts = append(parts, h[i:end])
	}
	return strings.Join(parts, ":")
}
