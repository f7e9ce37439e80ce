package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// SystemInfo summarizes the installed plugin and cryptographic providers.
type SystemInfo struct {
	CadesVersion       string `json:"cades_version" yaml:"cades_version"`
	CSPVersion         string `json:"csp_version,omitempty" yaml:"csp_version,omitempty"`
	CryptoProInstalled bool   `json:"cryptopro_installed" yaml:"cryptopro_installed"`
	VipNetInstalled    bool   `json:"vipnet_installed" yaml:"vipnet_installed"`
	CryptoProviderName string `json:"crypto_provider_name,omitempty" yaml:"crypto_provider_name,omitempty"`
}

// License is the state of one licensed CryptoPro product.
type License struct {
	IsValid          bool   `json:"is_valid" yaml:"is_valid"`
	ValidTo          string `json:"valid_to" yaml:"valid_to"`
	FirstInstallDate string `json:"first_install_date" yaml:"first_install_date"`
	CompanyName      string `json:"company_name" yaml:"company_name"`
	SerialNumber     string `json:"serial_number" yaml:"serial_number"`
}

// LicensesState holds the CSP, TSP and OCSP licenses. Entries are nil when
// CryptoPro CSP is not installed.
type LicensesState struct {
	CSP  *License `json:"csp" yaml:"csp"`
	TSP  *License `json:"tsp" yaml:"tsp"`
	OCSP *License `json:"ocsp" yaml:"ocsp"`
}

// Reader is a card reader known to CryptoPro CSP.
type Reader struct {
	Name         string `json:"name" yaml:"name"`
	NickName     string `json:"nick_name" yaml:"nick_name"`
	Media        string `json:"media" yaml:"media"`
	CarrierFlags int    `json:"carrier_flags" yaml:"carrier_flags"`
}

// GetSystemInfo reports the plugin version and the installed providers.
// The result is cached until Reset.
func (c *Client) GetSystemInfo(ctx context.Context) (*SystemInfo, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (*SystemInfo, error) {
		info, err := fill(ctx, c, "systemInfo", &c.caches.systemInfo, false, func(ctx context.Context) (*SystemInfo, error) {
			return c.systemInfo(ctx, b)
		})
		if err != nil {
			return nil, err
		}
		out := *info
		return &out, nil
	})
}

func (c *Client) systemInfo(ctx context.Context, b host.Bridge) (*SystemInfo, error) {
	about, err := createObject(ctx, b, cadeskit.ProgIDAbout)
	if err != nil {
		return nil, err
	}
	providers, err := c.GetCryptoProviders(ctx, false)
	if err != nil {
		return nil, err
	}

	info := &SystemInfo{}
	for _, p := range providers {
		if cadeskit.IsVipNet(p.Type) {
			info.VipNetInstalled = true
			info.CryptoProviderName = cadeskit.VipNetProviderName
			info.CSPVersion = fmt.Sprintf("%d.%d", p.MajorVersion, p.MinorVersion)
		}
		if cadeskit.IsCryptoPro(p.Type) {
			info.CryptoProInstalled = true
			info.CryptoProviderName = cadeskit.CryptoProProviderName
			info.CSPVersion = fmt.Sprintf("%d.%d.%d", p.MajorVersion, p.MinorVersion, p.BuildVersion)
		}
	}

	info.CadesVersion, err = pluginVersion(ctx, b, about)
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read system information")
	}
	c.trace("system info", "cades", info.CadesVersion, "csp", info.CSPVersion,
		"cryptopro", info.CryptoProInstalled, "vipnet", info.VipNetInstalled)
	return info, nil
}

// pluginVersion reads About.PluginVersion, falling back to About.Version on
// plugins that do not expose a version object.
func pluginVersion(ctx context.Context, b host.Bridge, about host.Object) (string, error) {
	v, err := b.Get(ctx, about, "PluginVersion")
	if err != nil {
		return "", err
	}
	var version string
	if obj, ok := v.(host.Object); ok && obj != nil {
		if version, err = host.InvokeString(ctx, b, obj, "toString"); err != nil {
			return "", err
		}
	}
	if version == "" {
		return host.GetString(ctx, b, about, "Version")
	}
	return version, nil
}

// GetCryptoProviders queries the version of every provider listed in
// Settings.CheckCryptoProviders. Providers the host does not know are
// skipped. The result is cached until reset or Reset.
func (c *Client) GetCryptoProviders(ctx context.Context, reset bool) ([]cadeskit.CryptoProvider, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) ([]cadeskit.CryptoProvider, error) {
		providers, err := fill(ctx, c, "providers", &c.caches.providers, reset, func(ctx context.Context) ([]cadeskit.CryptoProvider, error) {
			return c.cryptoProviders(ctx, b)
		})
		return cloneList(providers), err
	})
}

func (c *Client) cryptoProviders(ctx context.Context, b host.Bridge) ([]cadeskit.CryptoProvider, error) {
	available := []cadeskit.CryptoProvider{}
	for _, p := range c.Settings().CheckCryptoProviders {
		found, err := cspVersion(ctx, b, p)
		if err != nil {
			if isCancellation(err) {
				return nil, err
			}
			herr := cadeskit.FromHostError(err, "failed to read crypto provider "+p.Name)
			slog.Debug("crypto provider unavailable", "name", p.Name, "type", p.Type, "error", herr)
			continue
		}
		available = append(available, found)
	}
	c.trace("crypto providers", "available", len(available))
	return available, nil
}

func cspVersion(ctx context.Context, b host.Bridge, p cadeskit.CryptoProvider) (cadeskit.CryptoProvider, error) {
	about, err := b.CreateObject(ctx, cadeskit.ProgIDAbout)
	if err != nil {
		return p, err
	}
	version, err := host.InvokeObject(ctx, b, about, "CSPVersion", p.Name, p.Type)
	if err != nil {
		return p, err
	}
	if p.BuildVersion, err = host.GetInt(ctx, b, version, "BuildVersion"); err != nil {
		return p, err
	}
	if p.MajorVersion, err = host.GetInt(ctx, b, version, "MajorVersion"); err != nil {
		return p, err
	}
	if p.MinorVersion, err = host.GetInt(ctx, b, version, "MinorVersion"); err != nil {
		return p, err
	}
	return p, nil
}

// GetReaders lists the card readers known to CryptoPro CSP.
func (c *Client) GetReaders(ctx context.Context, reset bool) ([]Reader, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) ([]Reader, error) {
		readers, err := fill(ctx, c, "readers", &c.caches.readers, reset, func(ctx context.Context) ([]Reader, error) {
			return c.readers(ctx, b)
		})
		return cloneList(readers), err
	})
}

func (c *Client) readers(ctx context.Context, b host.Bridge) ([]Reader, error) {
	info, err := c.GetSystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	if !info.CryptoProInstalled {
		return nil, cadeskit.NewError(cadeskit.CodeReadersNeedCryptoPro, "failed to list readers", nil)
	}

	csp, err := cspInformation(ctx, b)
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to list readers")
	}
	modes, err := host.InvokeObject(ctx, b, csp, "GetReaderModes")
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to list readers")
	}
	count, err := host.GetInt(ctx, b, modes, "Count")
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to list readers")
	}

	readers := make([]Reader, 0, count)
	for i := range count {
		r, err := readReader(ctx, b, modes, i)
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to list readers")
		}
		readers = append(readers, r)
	}
	c.trace("readers", "count", len(readers))
	return readers, nil
}

func readReader(ctx context.Context, b host.Bridge, modes host.Object, i int) (Reader, error) {
	var r Reader
	mode, err := host.InvokeObject(ctx, b, modes, "ItemByIndex", i)
	if err != nil {
		return r, err
	}
	if r.Name, err = host.GetString(ctx, b, mode, "Name"); err != nil {
		return r, err
	}
	if r.NickName, err = host.GetString(ctx, b, mode, "NickName"); err != nil {
		return r, err
	}
	if r.CarrierFlags, err = host.GetInt(ctx, b, mode, "CarrierFlags"); err != nil {
		return r, err
	}
	if r.Media, err = host.GetString(ctx, b, mode, "Media"); err != nil {
		return r, err
	}
	return r, nil
}

func cspInformation(ctx context.Context, b host.Bridge) (host.Object, error) {
	csp, err := b.CreateObject(ctx, cadeskit.ProgIDCSPInformation)
	if err != nil {
		return nil, err
	}
	if _, err := b.Invoke(ctx, csp, "InitializeFromName", cadeskit.CryptoProProviderName); err != nil {
		return nil, err
	}
	return csp, nil
}

// GetLicensesState reads the CryptoPro CSP, TSP and OCSP licenses.
func (c *Client) GetLicensesState(ctx context.Context, reset bool) (*LicensesState, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (*LicensesState, error) {
		state, err := fill(ctx, c, "licenses", &c.caches.licenses, reset, func(ctx context.Context) (*LicensesState, error) {
			return c.licenses(ctx, b)
		})
		if err != nil {
			return nil, err
		}
		out := *state
		return &out, nil
	})
}

func (c *Client) licenses(ctx context.Context, b host.Bridge) (*LicensesState, error) {
	info, err := c.GetSystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	state := &LicensesState{}
	if !info.CryptoProInstalled {
		return state, nil
	}

	lic, err := createObject(ctx, b, cadeskit.ProgIDLicense)
	if err != nil {
		return nil, err
	}
	products := []struct {
		product int
		dst     **License
	}{
		{cadeskit.ProductCSP, &state.CSP},
		{cadeskit.ProductTSP, &state.TSP},
		{cadeskit.ProductOCSP, &state.OCSP},
	}
	for _, p := range products {
		l, err := readLicense(ctx, b, lic, p.product)
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to read license")
		}
		*p.dst = l
	}
	return state, nil
}

func readLicense(ctx context.Context, b host.Bridge, lic host.Object, product int) (*License, error) {
	l := &License{}
	var err error
	if l.IsValid, err = host.InvokeBool(ctx, b, lic, "IsValid", product); err != nil {
		return nil, err
	}
	if l.ValidTo, err = host.InvokeString(ctx, b, lic, "ValidTo", product); err != nil {
		return nil, err
	}
	if l.FirstInstallDate, err = host.InvokeString(ctx, b, lic, "FirstInstallDate", product); err != nil {
		return nil, err
	}
	if l.CompanyName, err = host.InvokeString(ctx, b, lic, "CompanyName", product); err != nil {
		return nil, err
	}
	if l.SerialNumber, err = host.InvokeString(ctx, b, lic, "SerialNumber", product); err != nil {
		return nil, err
	}
	return l, nil
}
