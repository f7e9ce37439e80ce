package plugin

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// Encrypt envelopes data for recipients and returns the Base64 CMS.
func (c *Client) Encrypt(ctx context.Context, data []byte, recipients []CertificateRef) (string, error) {
	if len(data) == 0 {
		return "", cadeskit.Missing("The data to encrypt is required.")
	}
	if len(recipients) == 0 {
		return "", cadeskit.Missing("The recipient certificates are required.")
	}
	handles := make([]host.Object, 0, len(recipients))
	for _, r := range recipients {
		h, err := handleOf(r)
		if err != nil {
			return "", err
		}
		handles = append(handles, h)
	}

	return run(ctx, c, func(ctx context.Context, b host.Bridge) (string, error) {
		env, err := createObject(ctx, b, cadeskit.ProgIDEnvelopedData)
		if err != nil {
			return "", err
		}
		if err := b.Set(ctx, env, "ContentEncoding", cadeskit.Base64ToBinary); err != nil {
			return "", cadeskit.FromHostError(err, "failed to prepare encryption parameters")
		}
		if err := b.Set(ctx, env, "Content", base64.StdEncoding.EncodeToString(data)); err != nil {
			return "", cadeskit.FromHostError(err, "failed to prepare encryption parameters")
		}

		list, err := host.GetObject(ctx, b, env, "Recipients")
		if err != nil {
			return "", cadeskit.FromHostError(err, "failed to add recipients")
		}
		for _, h := range handles {
			if _, err := b.Invoke(ctx, list, "Add", h); err != nil {
				return "", cadeskit.FromHostError(err, "failed to add recipients")
			}
		}

		out, err := host.InvokeString(ctx, b, env, "Encrypt", cadeskit.EncodeBase64)
		if err != nil {
			return "", cadeskit.FromHostError(err, "failed to encrypt data")
		}
		c.trace("encrypted data", "bytes", len(data), "recipients", len(handles))
		return out, nil
	})
}

// Decrypt opens a Base64 CMS envelope with a key available to the user.
func (c *Client) Decrypt(ctx context.Context, envelope string) ([]byte, error) {
	if strings.TrimSpace(envelope) == "" {
		return nil, cadeskit.Missing("The data to decrypt is required.")
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) ([]byte, error) {
		env, err := createObject(ctx, b, cadeskit.ProgIDEnvelopedData)
		if err != nil {
			return nil, err
		}
		if err := b.Set(ctx, env, "ContentEncoding", cadeskit.Base64ToBinary); err != nil {
			return nil, cadeskit.FromHostError(err, "failed to prepare decryption parameters")
		}
		if _, err := b.Invoke(ctx, env, "Decrypt", envelope); err != nil {
			return nil, cadeskit.FromHostError(err, "failed to decrypt data")
		}
		content, err := host.GetString(ctx, b, env, "Content")
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to decrypt data")
		}
		data, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to decode decrypted data")
		}
		c.trace("decrypted data", "bytes", len(data))
		return data, nil
	})
}
