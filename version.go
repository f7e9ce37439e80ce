package cadeskit

import (
	"regexp"
	"strconv"
)

// Minimum supported versions.
const (
	// MinPluginBuild is the oldest supported 2.0.x plugin build.
	MinPluginBuild = 13292
	// MinCryptoProMajor is the oldest supported CryptoPro CSP major version.
	MinCryptoProMajor = 4
	// MinVipNetVersion is the oldest supported ViPNet CSP major.minor.
	MinVipNetVersion = 4.4
)

var pluginVersionPattern = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// IsSupportedPluginVersion reports whether a plugin version string such as
// "2.0.14660" is new enough. Versions without a major.minor.patch triple are
// rejected.
func IsSupportedPluginVersion(version string) bool {
	m := pluginVersionPattern.FindStringSubmatch(version)
	if m == nil {
		return false
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	if major > 2 {
		return true
	}
	return !(major == 2 && minor == 0 && patch < MinPluginBuild)
}

// IsSupportedCSPVersion applies the built-in minimum version rule to one
// enumerated provider. Providers of unknown families are never supported.
func IsSupportedCSPVersion(p CryptoProvider) bool {
	switch {
	case IsCryptoPro(p.Type):
		return p.MajorVersion >= MinCryptoProMajor
	case IsVipNet(p.Type):
		if p.MajorVersion == 0 {
			return false
		}
		v, err := strconv.ParseFloat(strconv.Itoa(p.MajorVersion)+"."+strconv.Itoa(p.MinorVersion), 64)
		return err == nil && v >= MinVipNetVersion
	default:
		return false
	}
}
