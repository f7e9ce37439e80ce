package cadeskit

import "testing"

func TestIsSupportedPluginVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    bool
	}{
		{"2.0.13291", false},
		{"2.0.13292", true},
		{"2.0.14660", true},
		{"2.1.0", true},
		{"3.0.0", true},
		{"1.5.1633", true},
		{"Version 2.0.12438 (build)", false},
		{"2.0", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			if got := IsSupportedPluginVersion(tt.version); got != tt.want {
				t.Errorf("IsSupportedPluginVersion(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestIsSupportedCSPVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    CryptoProvider
		want bool
	}{
		{"CryptoPro 5", CryptoProvider{Type: 80, MajorVersion: 5}, true},
		{"CryptoPro 4", CryptoProvider{Type: 75, MajorVersion: 4}, true},
		{"CryptoPro 3.9", CryptoProvider{Type: 81, MajorVersion: 3, MinorVersion: 9}, false},
		{"ViPNet 4.4", CryptoProvider{Type: 2, MajorVersion: 4, MinorVersion: 4}, true},
		{"ViPNet 4.2", CryptoProvider{Type: 77, MajorVersion: 4, MinorVersion: 2}, false},
		{"ViPNet 5.0", CryptoProvider{Type: 78, MajorVersion: 5}, true},
		{"ViPNet unknown version", CryptoProvider{Type: 2}, false},
		{"unknown family", CryptoProvider{Type: 24, MajorVersion: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsSupportedCSPVersion(tt.p); got != tt.want {
				t.Errorf("IsSupportedCSPVersion(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}
