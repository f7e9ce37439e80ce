package cadeskit

import "slices"

// CryptoProvider identifies a cryptographic service provider and, once
// queried from the host, its version.
type CryptoProvider struct {
	Name         string `json:"name" yaml:"name"`
	Type         int    `json:"type" yaml:"type"`
	MajorVersion int    `json:"major_version,omitempty" yaml:"major_version,omitempty"`
	MinorVersion int    `json:"minor_version,omitempty" yaml:"minor_version,omitempty"`
	BuildVersion int    `json:"build_version,omitempty" yaml:"build_version,omitempty"`
}

// Provider names used as defaults for container and reader enumeration.
const (
	CryptoProProviderName = "Crypto-Pro GOST R 34.10-2012 Cryptographic Service Provider"
	VipNetProviderName    = "Infotecs Cryptographic Service Provider"
)

// DefaultCryptoProviders returns the providers probed during system
// validation.
func DefaultCryptoProviders() []CryptoProvider {
	return []CryptoProvider{
		{Type: 75, Name: "Crypto-Pro GOST R 34.10-2001 Cryptographic Service Provider"},
		{Type: 80, Name: CryptoProProviderName},
		{Type: 81, Name: "Crypto-Pro GOST R 34.10-2012 Strong Cryptographic Service Provider"},
		{Type: 2, Name: VipNetProviderName},
		{Type: 77, Name: "Infotecs GOST 2012/512 Cryptographic Service Provider"},
		{Type: 78, Name: "Infotecs GOST 2012/1024 Cryptographic Service Provider"},
	}
}

var (
	cryptoProTypes = []int{75, 80, 81}
	vipNetTypes    = []int{2, 77, 78}
)

// IsCryptoPro reports whether the provider type belongs to CryptoPro CSP.
func IsCryptoPro(providerType int) bool {
	return slices.Contains(cryptoProTypes, providerType)
}

// IsVipNet reports whether the provider type belongs to ViPNet CSP.
func IsVipNet(providerType int) bool {
	return slices.Contains(vipNetTypes, providerType)
}

// Same reports whether two entries name the same provider.
func (p CryptoProvider) Same(other CryptoProvider) bool {
	return p.Name == other.Name && p.Type == other.Type
}
