package cadeskit

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// DecodeJKS returns the certificate DER blobs of a Java KeyStore. Trusted
// certificate entries are always read; the chains of private key entries are
// read when password also unlocks the entry (standard Java convention).
// Entries that fail individually are skipped.
func DecodeJKS(data []byte, password string) ([][]byte, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, fmt.Errorf("loading JKS: %w", err)
	}

	var ders [][]byte
	for _, alias := range ks.Aliases() {
		switch {
		case ks.IsTrustedCertificateEntry(alias):
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				continue
			}
			ders = append(ders, entry.Certificate.Content)
		case ks.IsPrivateKeyEntry(alias):
			entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
			if err != nil {
				continue
			}
			for _, c := range entry.CertificateChain {
				ders = append(ders, c.Content)
			}
		}
	}

	if len(ders) == 0 {
		return nil, errors.New("JKS contains no certificates")
	}
	return ders, nil
}
