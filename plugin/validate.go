package plugin

import (
	"context"
	"log/slog"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// CheckIsValidSystemSetup verifies the plugin version and that a supported
// CryptoPro or ViPNet CSP is installed.
func (c *Client) CheckIsValidSystemSetup(ctx context.Context) error {
	_, err := run(ctx, c, func(ctx context.Context, b host.Bridge) (struct{}, error) {
		return struct{}{}, c.checkSystemSetup(withValidation(ctx, b))
	})
	return err
}

// IsValidSystemSetup is CheckIsValidSystemSetup reporting a bool. The
// failure is logged.
func (c *Client) IsValidSystemSetup(ctx context.Context) bool {
	if err := c.CheckIsValidSystemSetup(ctx); err != nil {
		slog.Warn("system setup is invalid", "error", err)
		return false
	}
	return true
}

func (c *Client) checkSystemSetup(ctx context.Context) error {
	info, err := c.GetSystemInfo(ctx)
	if err != nil {
		if isCancellation(err) {
			return err
		}
		return cadeskit.FromHostError(err, "system setup is invalid")
	}
	if !cadeskit.IsSupportedPluginVersion(info.CadesVersion) {
		return cadeskit.NewError(cadeskit.CodeUnsupportedPlugin, "unsupported plugin version "+info.CadesVersion, nil)
	}
	if !info.CryptoProInstalled && !info.VipNetInstalled {
		return cadeskit.NewError(cadeskit.CodeNoProvider, "no crypto provider installed", nil)
	}
	if err := c.checkCSPVersion(ctx); err != nil {
		return err
	}
	c.trace("system setup is valid", "cades", info.CadesVersion, "csp", info.CSPVersion)
	return nil
}

// checkCSPVersion applies Settings.CheckCSPVersion to every enumerated
// provider, or the built-in rule to the first CryptoPro and first ViPNet
// provider.
func (c *Client) checkCSPVersion(ctx context.Context) error {
	providers, err := c.GetCryptoProviders(ctx, false)
	if err != nil {
		return err
	}
	settings := c.Settings()

	if settings.CheckCSPVersion != nil {
		for _, p := range providers {
			if !listed(settings.CheckCryptoProviders, p) {
				continue
			}
			if msg := settings.CheckCSPVersion(p); msg != "" {
				return cadeskit.NewError(cadeskit.CodeUnsupportedCSP, "unsupported CSP version "+p.Name, nil, msg)
			}
		}
		return nil
	}

	var cryptoPro, vipNet *cadeskit.CryptoProvider
	for i := range providers {
		switch p := &providers[i]; {
		case cryptoPro == nil && cadeskit.IsCryptoPro(p.Type):
			cryptoPro = p
		case vipNet == nil && cadeskit.IsVipNet(p.Type):
			vipNet = p
		}
	}
	if cryptoPro != nil && cadeskit.IsSupportedCSPVersion(*cryptoPro) {
		return nil
	}
	if vipNet != nil && cadeskit.IsSupportedCSPVersion(*vipNet) {
		return nil
	}
	return cadeskit.NewError(cadeskit.CodeUnsupportedCSP, "unsupported CSP version", nil)
}

func listed(providers []cadeskit.CryptoProvider, p cadeskit.CryptoProvider) bool {
	for _, l := range providers {
		if l.Same(p) {
			return true
		}
	}
	return false
}
