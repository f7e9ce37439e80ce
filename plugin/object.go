package plugin

import (
	"context"
	"strings"
	"time"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// CertificateCheck is a custom certificate validation. It returns a
// non-empty message when the certificate must not be used.
type CertificateCheck func(context.Context, *Certificate) (string, error)

// ValidateCertificate checks that ref can sign: it has a private key, is
// within its validity period and uses a GOST algorithm. It returns "" when
// the certificate passes. A custom check replaces the default rules.
func (c *Client) ValidateCertificate(ctx context.Context, ref CertificateRef, custom CertificateCheck) (string, error) {
	cert, err := c.NewCertificate(ctx, ref)
	if err != nil {
		return "", err
	}
	if custom != nil {
		return custom(ctx, cert)
	}
	return validationMessage(cert, c.now()), nil
}

func validationMessage(cert *Certificate, now time.Time) string {
	var problems []string
	if !cert.HasPrivateKey {
		problems = append(problems, "the private key is not available")
	}
	if !cert.NotAfter.IsZero() && now.After(cert.NotAfter) {
		problems = append(problems, "the certificate has expired")
	}
	if !cert.NotBefore.IsZero() && now.Before(cert.NotBefore) {
		problems = append(problems, "the certificate is not yet valid")
	}
	if !cert.IsGOST {
		problems = append(problems, "GOST algorithms are not supported by the certificate")
	}
	if len(problems) == 0 {
		return ""
	}
	return "The certificate failed validation: " + strings.Join(problems, ", ") + "."
}

// requireValid normalizes ref and rejects it with CBP-6 unless it passes
// the default validation.
func (c *Client) requireValid(ctx context.Context, b host.Bridge, ref CertificateRef) (*Certificate, error) {
	cert, err := c.normalize(ctx, b, ref)
	if err != nil {
		return nil, err
	}
	if msg := validationMessage(cert, c.now()); msg != "" {
		return nil, cadeskit.NewError(cadeskit.CodeCertificateInvalid, "certificate failed validation", nil, msg)
	}
	return cert, nil
}
