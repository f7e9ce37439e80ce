package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/cadeskit"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultFormat returns text when f is a terminal and JSON otherwise, so that
// piped output is machine readable.
func DefaultFormat(f *os.File) string {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return FormatText
	}
	return FormatJSON
}

// Render formats v as JSON or YAML, or calls text for the text format.
func Render(format string, v any, text func(*strings.Builder)) (string, error) {
	switch format {
	case FormatText:
		var sb strings.Builder
		text(&sb)
		return sb.String(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshaling YAML: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text, json or yaml)", format)
	}
}

// FormatAttributes renders attributes as "CN=..., O=..." in reporting order.
func FormatAttributes(a cadeskit.Attributes) string {
	names := a.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, string(name)+"="+a[name])
	}
	return strings.Join(parts, ", ")
}

// CertAnnotation returns a parenthetical annotation like " (2 expired, 1 without key)"
// for non-zero counts, or an empty string if both are zero.
func CertAnnotation(expired, withoutKey int) string {
	var parts []string
	if expired > 0 {
		parts = append(parts, fmt.Sprintf("%d expired", expired))
	}
	if withoutKey > 0 {
		parts = append(parts, fmt.Sprintf("%d without key", withoutKey))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
