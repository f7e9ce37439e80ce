package cadeskit

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// DecodePKCS12 returns the certificate DER blobs of a PKCS#12/PFX trust
// store. Bags holding GOST private keys are not supported by the decoder;
// such files fail with an error rather than yielding partial results.
func DecodePKCS12(pfxData []byte, password string) ([][]byte, error) {
	certs, err := gopkcs12.DecodeTrustStore(pfxData, password)
	if err != nil {
		_, leaf, caCerts, chainErr := gopkcs12.DecodeChain(pfxData, password)
		if chainErr != nil {
			return nil, fmt.Errorf("decoding PKCS#12: %w", err)
		}
		certs = append([]*x509.Certificate{leaf}, caCerts...)
	}
	if len(certs) == 0 {
		return nil, errors.New("PKCS#12 bundle contains no certificates")
	}
	ders := make([][]byte, 0, len(certs))
	for _, c := range certs {
		ders = append(ders, c.Raw)
	}
	return ders, nil
}

// DecodePKCS7 returns the certificate DER blobs of a DER PKCS#7 bundle.
// Returns an error if decoding fails or the bundle contains no certificates.
func DecodePKCS7(derData []byte) ([][]byte, error) {
	p7, err := pkcs7.Parse(derData)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	ders := make([][]byte, 0, len(p7.Certificates))
	for _, c := range p7.Certificates {
		ders = append(ders, c.Raw)
	}
	return ders, nil
}

// DefaultPasswords returns the passwords tried on PKCS#12 and JKS files when
// the caller supplies none. The empty password comes first.
func DefaultPasswords() []string {
	return []string{"", "password", "changeit", "12345678"}
}
