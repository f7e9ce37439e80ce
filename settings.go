package cadeskit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CSPVersionCheck inspects one enumerated provider and returns a non-empty
// message when its version is not acceptable.
type CSPVersionCheck func(CryptoProvider) string

// Settings configures a plugin client. Changes take effect on the next
// operation; mutate it before sharing the client between goroutines.
type Settings struct {
	// CheckSystemSetup runs system validation on the first operation.
	CheckSystemSetup bool
	// Debug logs operation traces and error cause chains at debug level.
	Debug bool
	// DebugHostPlugin asks the host plugin itself to log verbosely.
	DebugHostPlugin bool
	// CheckCSPVersion replaces the built-in CSP version rule when set. It is
	// applied to every enumerated provider listed in CheckCryptoProviders.
	CheckCSPVersion CSPVersionCheck
	// CheckCryptoProviders lists the providers probed during validation.
	CheckCryptoProviders []CryptoProvider
}

// DefaultSettings returns settings with system validation enabled and the
// default provider list.
func DefaultSettings() *Settings {
	return &Settings{
		CheckSystemSetup:     true,
		CheckCryptoProviders: DefaultCryptoProviders(),
	}
}

// settingsFile is the YAML form of Settings.
type settingsFile struct {
	CheckSystemSetup *bool              `yaml:"checkSystemSetup,omitempty"`
	Debug            bool               `yaml:"debug,omitempty"`
	DebugHostPlugin  bool               `yaml:"debugHostPlugin,omitempty"`
	CryptoProviders  []CryptoProvider   `yaml:"cryptoProviders,omitempty"`
	MinCSPVersion    *minCSPVersionFile `yaml:"minCspVersion,omitempty"`
}

type minCSPVersionFile struct {
	CryptoPro int     `yaml:"cryptopro"`
	VipNet    float64 `yaml:"vipnet"`
}

// LoadSettings reads a YAML settings file on top of DefaultSettings. A
// minCspVersion block installs a CheckCSPVersion override with those limits.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings parses YAML settings on top of DefaultSettings.
func ParseSettings(data []byte) (*Settings, error) {
	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	s := DefaultSettings()
	if f.CheckSystemSetup != nil {
		s.CheckSystemSetup = *f.CheckSystemSetup
	}
	s.Debug = f.Debug
	s.DebugHostPlugin = f.DebugHostPlugin
	if len(f.CryptoProviders) > 0 {
		for i, p := range f.CryptoProviders {
			if strings.TrimSpace(p.Name) == "" {
				return nil, fmt.Errorf("crypto provider %d: name is required", i)
			}
		}
		s.CheckCryptoProviders = f.CryptoProviders
	}
	if f.MinCSPVersion != nil {
		s.CheckCSPVersion = MinimumCSPVersion(f.MinCSPVersion.CryptoPro, f.MinCSPVersion.VipNet)
	}
	return s, nil
}

// MinimumCSPVersion returns a CSPVersionCheck enforcing the given CryptoPro
// major version and ViPNet major.minor version.
func MinimumCSPVersion(cryptoProMajor int, vipNet float64) CSPVersionCheck {
	return func(p CryptoProvider) string {
		switch {
		case IsCryptoPro(p.Type) && p.MajorVersion < cryptoProMajor:
			return fmt.Sprintf("%s %d.%d.%d is older than the required version %d.", p.Name, p.MajorVersion, p.MinorVersion, p.BuildVersion, cryptoProMajor)
		case IsVipNet(p.Type) && float64(p.MajorVersion)+float64(p.MinorVersion)/10 < vipNet:
			return fmt.Sprintf("%s %d.%d is older than the required version %.1f.", p.Name, p.MajorVersion, p.MinorVersion, vipNet)
		default:
			return ""
		}
	}
}
