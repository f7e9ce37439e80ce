package plugin

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// SignOptions tune a signature. The zero value produces a detached CAdES-BES
// signature including the whole chain, signed by a validated certificate.
type SignOptions struct {
	// Attached embeds the signed content in the signature.
	Attached bool
	// ExcludeChain includes only the signer certificate.
	ExcludeChain bool
	// SkipValidation signs with a certificate that fails validation.
	SkipValidation bool
}

// Sign computes a CAdES-BES signature of data and returns it as Base64.
func (c *Client) Sign(ctx context.Context, ref CertificateRef, data []byte, opts SignOptions) (string, error) {
	if len(data) == 0 {
		return "", cadeskit.Missing("The data to sign is required.")
	}
	obj, err := signerHandle(ref)
	if err != nil {
		return "", err
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (string, error) {
		if !opts.SkipValidation {
			if _, err := c.requireValid(ctx, b, ref); err != nil {
				return "", err
			}
		}
		signer, err := createObject(ctx, b, cadeskit.ProgIDSigner)
		if err != nil {
			return "", err
		}
		signed, err := createObject(ctx, b, cadeskit.ProgIDSignedData)
		if err != nil {
			return "", err
		}

		if err := prepareSigner(ctx, b, signer, obj, opts); err != nil {
			return "", err
		}
		if err := b.Set(ctx, signed, "ContentEncoding", cadeskit.Base64ToBinary); err != nil {
			return "", prepareError(err)
		}
		if err := b.Set(ctx, signed, "Content", base64.StdEncoding.EncodeToString(data)); err != nil {
			return "", prepareError(err)
		}

		sig, err := host.InvokeString(ctx, b, signed, "SignCades", signer, cadeskit.CadesBES, !opts.Attached)
		if err != nil {
			return "", cadeskit.FromHostError(err, "failed to compute signature")
		}
		c.trace("signed data", "bytes", len(data), "attached", opts.Attached)
		return sig, nil
	})
}

// SignHash signs a precomputed GOST R 34.11-2012 hash. The hash algorithm
// follows the key algorithm of the certificate.
func (c *Client) SignHash(ctx context.Context, ref CertificateRef, hash []byte, opts SignOptions) (string, error) {
	if len(hash) == 0 {
		return "", cadeskit.Missing("The hash to sign is required.")
	}
	obj, err := signerHandle(ref)
	if err != nil {
		return "", err
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (string, error) {
		cert, err := c.signingCertificate(ctx, b, ref, opts)
		if err != nil {
			return "", err
		}
		algorithm, err := hashAlgorithm(cert.Algorithm)
		if err != nil {
			return "", err
		}

		hashed, err := createObject(ctx, b, cadeskit.ProgIDHashedData)
		if err != nil {
			return "", err
		}
		signer, err := createObject(ctx, b, cadeskit.ProgIDSigner)
		if err != nil {
			return "", err
		}
		signed, err := createObject(ctx, b, cadeskit.ProgIDSignedData)
		if err != nil {
			return "", err
		}

		if err := prepareSigner(ctx, b, signer, obj, opts); err != nil {
			return "", err
		}
		if err := b.Set(ctx, hashed, "Algorithm", algorithm); err != nil {
			return "", prepareError(err)
		}
		if _, err := b.Invoke(ctx, hashed, "SetHashValue", hex.EncodeToString(hash)); err != nil {
			return "", prepareError(err)
		}

		sig, err := host.InvokeString(ctx, b, signed, "SignHash", hashed, signer, cadeskit.CadesBES)
		if err != nil {
			return "", cadeskit.FromHostError(err, "failed to compute signature")
		}
		c.trace("signed hash", "algorithm", algorithm)
		return sig, nil
	})
}

// SignXML signs an XML document with XMLDSig using the GOST algorithms
// matching the certificate key.
func (c *Client) SignXML(ctx context.Context, ref CertificateRef, data []byte, typ cadeskit.XMLSignatureType, opts SignOptions) (string, error) {
	if len(data) == 0 {
		return "", cadeskit.Missing("The data to sign is required.")
	}
	obj, err := signerHandle(ref)
	if err != nil {
		return "", err
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (string, error) {
		cert, err := c.signingCertificate(ctx, b, ref, opts)
		if err != nil {
			return "", err
		}
		signatureMethod, digestMethod, err := xmlAlgorithms(cert.Algorithm)
		if err != nil {
			return "", err
		}

		signer, err := createObject(ctx, b, cadeskit.ProgIDSigner)
		if err != nil {
			return "", err
		}
		signed, err := createObject(ctx, b, cadeskit.ProgIDSignedXML)
		if err != nil {
			return "", err
		}

		if err := b.Set(ctx, signer, "Certificate", obj); err != nil {
			return "", prepareError(err)
		}
		props := []struct {
			key   string
			value any
		}{
			{"Content", base64.StdEncoding.EncodeToString(data)},
			{"SignatureType", int(typ)},
			{"SignatureMethod", signatureMethod},
			{"DigestMethod", digestMethod},
		}
		for _, p := range props {
			if err := b.Set(ctx, signed, p.key, p.value); err != nil {
				return "", prepareError(err)
			}
		}

		sig, err := host.InvokeString(ctx, b, signed, "Sign", signer)
		if err != nil {
			return "", cadeskit.FromHostError(err, "failed to compute signature")
		}
		c.trace("signed xml", "type", int(typ))
		return sig, nil
	})
}

func signerHandle(ref CertificateRef) (host.Object, error) {
	if ref == nil {
		return nil, cadeskit.Missing("The signing certificate is required.")
	}
	return handleOf(ref)
}

// signingCertificate normalizes ref, validating it unless opts skip it.
func (c *Client) signingCertificate(ctx context.Context, b host.Bridge, ref CertificateRef, opts SignOptions) (*Certificate, error) {
	if opts.SkipValidation {
		return c.normalize(ctx, b, ref)
	}
	return c.requireValid(ctx, b, ref)
}

func prepareSigner(ctx context.Context, b host.Bridge, signer, cert host.Object, opts SignOptions) error {
	if err := b.Set(ctx, signer, "Certificate", cert); err != nil {
		return prepareError(err)
	}
	if !opts.ExcludeChain {
		if err := b.Set(ctx, signer, "Options", cadeskit.IncludeWholeChain); err != nil {
			return prepareError(err)
		}
	}
	return nil
}

func prepareError(err error) error {
	return cadeskit.FromHostError(err, "failed to prepare signing parameters")
}

func hashAlgorithm(keyAlgorithm string) (int, error) {
	switch keyAlgorithm {
	case cadeskit.OIDGost2012256:
		return cadeskit.HashGost3411_2012_256, nil
	case cadeskit.OIDGost2012512:
		return cadeskit.HashGost3411_2012_512, nil
	}
	return 0, cadeskit.Missing("Unknown signature key algorithm.")
}

func xmlAlgorithms(keyAlgorithm string) (signature, digest string, err error) {
	switch keyAlgorithm {
	case cadeskit.OIDGost2012256:
		return cadeskit.XMLDSigGost2012256Signature, cadeskit.XMLDSigGost2012256Digest, nil
	case cadeskit.OIDGost2012512:
		return cadeskit.XMLDSigGost2012512Signature, cadeskit.XMLDSigGost2012512Digest, nil
	}
	return "", "", cadeskit.NewError(cadeskit.CodeUnknownXMLAlgorithm,
		fmt.Sprintf("unknown algorithm %q for XMLDSig", keyAlgorithm), nil)
}
