package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// Certificate is the normalized view of a host certificate object.
type Certificate struct {
	Name          string              `json:"name" yaml:"name"`
	IssuerName    string              `json:"issuer_name" yaml:"issuer_name"`
	SubjectName   string              `json:"subject_name" yaml:"subject_name"`
	Thumbprint    string              `json:"thumbprint" yaml:"thumbprint"`
	NotBefore     time.Time           `json:"not_before" yaml:"not_before"`
	NotAfter      time.Time           `json:"not_after" yaml:"not_after"`
	Base64        string              `json:"base64" yaml:"base64"`
	Subject       cadeskit.Attributes `json:"subject" yaml:"subject"`
	Issuer        cadeskit.Attributes `json:"issuer" yaml:"issuer"`
	SubjectKeyID  *string             `json:"subject_key_id" yaml:"subject_key_id"`
	Algorithm     string              `json:"algorithm" yaml:"algorithm"`
	IsGOST        bool                `json:"is_gost" yaml:"is_gost"`
	HasPrivateKey bool                `json:"has_private_key" yaml:"has_private_key"`
	ProviderName  string              `json:"provider_name,omitempty" yaml:"provider_name,omitempty"`
	ProviderType  int                 `json:"provider_type,omitempty" yaml:"provider_type,omitempty"`

	handle host.Object
}

// Handle returns the host object the certificate was read from.
func (c *Certificate) Handle() host.Object {
	return c.handle
}

// CertificateRef is either a *Certificate or a Raw host certificate object.
type CertificateRef interface {
	certificateRef()
}

// Raw wraps a host certificate object that has not been normalized yet.
type Raw struct {
	Object host.Object
}

func (*Certificate) certificateRef() {}
func (Raw) certificateRef() {}

// handleOf returns the host object behind ref.
func handleOf(ref CertificateRef) (host.Object, error) {
	switch r := ref.(type) {
	case *Certificate:
		if r != nil && r.handle != nil {
			return r.handle, nil
		}
	case Raw:
		if r.Object != nil {
			return r.Object, nil
		}
	}
	return nil, cadeskit.Missing("The certificate is required.")
}

// NewCertificate normalizes ref. A *Certificate is returned unchanged.
func (c *Client) NewCertificate(ctx context.Context, ref CertificateRef) (*Certificate, error) {
	if cert, ok := ref.(*Certificate); ok && cert != nil && cert.handle != nil {
		return cert, nil
	}
	if _, err := handleOf(ref); err != nil {
		return nil, err
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (*Certificate, error) {
		return c.normalize(ctx, b, ref)
	})
}

func (c *Client) normalize(ctx context.Context, b host.Bridge, ref CertificateRef) (*Certificate, error) {
	if cert, ok := ref.(*Certificate); ok && cert != nil && cert.handle != nil {
		return cert, nil
	}
	obj, err := handleOf(ref)
	if err != nil {
		return nil, err
	}

	cert := &Certificate{handle: obj}
	if cert.Name, err = host.InvokeString(ctx, b, obj, "GetInfo", int(cadeskit.CertInfoSubjectSimpleName)); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate subject")
	}
	if cert.IssuerName, err = host.InvokeString(ctx, b, obj, "GetInfo", int(cadeskit.CertInfoIssuerSimpleName)); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate issuer")
	}
	if cert.SubjectName, err = host.GetString(ctx, b, obj, "SubjectName"); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate subject name")
	}
	if cert.Thumbprint, err = host.GetString(ctx, b, obj, "Thumbprint"); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate thumbprint")
	}
	cert.Thumbprint = cadeskit.NormalizeThumbprint(cert.Thumbprint)
	if cert.NotBefore, err = host.GetTime(ctx, b, obj, "ValidFromDate"); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate validity")
	}
	if cert.NotAfter, err = host.GetTime(ctx, b, obj, "ValidToDate"); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate validity")
	}
	cert.NotBefore, cert.NotAfter = cert.NotBefore.UTC(), cert.NotAfter.UTC()
	if cert.Base64, err = host.InvokeString(ctx, b, obj, "Export", cadeskit.EncodeBase64); err != nil {
		return nil, cadeskit.FromHostError(err, "failed to export certificate")
	}

	if err := c.readPrivateKey(ctx, b, cert); err != nil {
		herr := cadeskit.FromHostError(err, "failed to read certificate private key")
		slog.Warn("reading private key", "thumbprint", cert.Thumbprint, "error", herr)
		cert.HasPrivateKey = false
		cert.ProviderName = ""
		cert.ProviderType = 0
	}

	d, err := cadeskit.Decode(cert.Base64)
	if err != nil {
		return nil, err
	}
	cert.Subject = d.Subject
	cert.Issuer = d.Issuer
	cert.SubjectKeyID = d.SubjectKeyID
	cert.Algorithm = d.Algorithm
	cert.IsGOST = d.IsGOST
	c.trace("normalized certificate", "thumbprint", cert.Thumbprint, "gost", cert.IsGOST)
	return cert, nil
}

func (c *Client) readPrivateKey(ctx context.Context, b host.Bridge, cert *Certificate) error {
	has, err := host.InvokeBool(ctx, b, cert.handle, "HasPrivateKey")
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	key, err := host.GetObject(ctx, b, cert.handle, "PrivateKey")
	if err != nil {
		return err
	}
	name, err := host.GetString(ctx, b, key, "ProviderName")
	if err != nil {
		return err
	}
	typ, err := host.GetInt(ctx, b, key, "ProviderType")
	if err != nil {
		return err
	}
	cert.HasPrivateKey = true
	cert.ProviderName = name
	cert.ProviderType = typ
	return nil
}

// CertInfo returns one GetInfo field of the certificate.
func (c *Client) CertInfo(ctx context.Context, ref CertificateRef, info cadeskit.CertInfoType) (string, error) {
	obj, err := handleOf(ref)
	if err != nil {
		return "", err
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (string, error) {
		v, err := host.InvokeString(ctx, b, obj, "GetInfo", int(info))
		if err != nil {
			return "", cadeskit.FromHostError(err, "failed to read certificate info")
		}
		return v, nil
	})
}
