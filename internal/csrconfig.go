package internal

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/plugin"
)

// CSRConfig is one certificate request entry of a CSR YAML file. Subject keys
// are attribute short names (CN, O, INN, ...) or dotted OIDs.
type CSRConfig struct {
	ProviderName        string             `yaml:"provider_name,omitempty"`
	ProviderType        int                `yaml:"provider_type,omitempty"`
	ContainerName       string             `yaml:"container_name,omitempty"`
	ContainerPIN        *string            `yaml:"container_pin,omitempty"`
	Exportable          *bool              `yaml:"exportable,omitempty"`
	Subject             map[string]string  `yaml:"subject,omitempty"`
	KeyUsage            int                `yaml:"key_usage,omitempty"`
	EnhancedKeyUsage    []string           `yaml:"enhanced_key_usage,omitempty"`
	Policies            []plugin.CSRPolicy `yaml:"policies,omitempty"`
	SignTool            string             `yaml:"sign_tool,omitempty"`
	IdentificationKind  int                `yaml:"identification_kind,omitempty"`
	TemplateOID         string             `yaml:"template_oid,omitempty"`
	ValidityPeriod      string             `yaml:"validity_period,omitempty"`
	ValidityPeriodUnits int                `yaml:"validity_period_units,omitempty"`
}

// CSRYAML is the full YAML structure with defaults and requests.
type CSRYAML struct {
	Defaults *CSRConfig  `yaml:"defaults,omitempty"`
	Requests []CSRConfig `yaml:"requests"`
}

// LoadCSRConfigs loads certificate requests from a YAML file.
// Fields missing from a request are taken from defaults; subject attributes
// are merged key by key.
func LoadCSRConfigs(path string) ([]plugin.CSRRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var configs []CSRConfig
	var file CSRYAML
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Requests) > 0 {
		for _, c := range file.Requests {
			if file.Defaults != nil {
				c = mergeCSRConfig(*file.Defaults, c)
			}
			configs = append(configs, c)
		}
	} else {
		// A file without a requests list describes a single request.
		var single CSRConfig
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing CSR config %s: %w", path, err)
		}
		configs = append(configs, single)
	}

	requests := make([]plugin.CSRRequest, 0, len(configs))
	for i, c := range configs {
		req, err := c.Request()
		if err != nil {
			return nil, fmt.Errorf("request %d in %s: %w", i+1, path, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func mergeCSRConfig(def, c CSRConfig) CSRConfig {
	if c.ProviderName == "" {
		c.ProviderName = def.ProviderName
	}
	if c.ProviderType == 0 {
		c.ProviderType = def.ProviderType
	}
	if c.ContainerPIN == nil {
		c.ContainerPIN = def.ContainerPIN
	}
	if c.Exportable == nil {
		c.Exportable = def.Exportable
	}
	if c.KeyUsage == 0 {
		c.KeyUsage = def.KeyUsage
	}
	if c.EnhancedKeyUsage == nil {
		c.EnhancedKeyUsage = slices.Clone(def.EnhancedKeyUsage)
	}
	if c.Policies == nil {
		c.Policies = slices.Clone(def.Policies)
	}
	if c.SignTool == "" {
		c.SignTool = def.SignTool
	}
	if c.IdentificationKind == 0 {
		c.IdentificationKind = def.IdentificationKind
	}
	if c.TemplateOID == "" {
		c.TemplateOID = def.TemplateOID
	}
	if c.ValidityPeriod == "" {
		c.ValidityPeriod = def.ValidityPeriod
		c.ValidityPeriodUnits = def.ValidityPeriodUnits
	}
	subject := make(map[string]string, len(def.Subject)+len(c.Subject))
	for k, v := range def.Subject {
		subject[k] = v
	}
	for k, v := range c.Subject {
		subject[k] = v
	}
	c.Subject = subject
	return c
}

// Request converts the entry to a plugin request. Known attributes come
// first in the order certificates report them, then dotted OIDs sorted.
func (c CSRConfig) Request() (plugin.CSRRequest, error) {
	req := plugin.CSRRequest{
		ProviderName:        c.ProviderName,
		ProviderType:        c.ProviderType,
		ContainerName:       c.ContainerName,
		ContainerPIN:        c.ContainerPIN,
		Exportable:          c.Exportable != nil && *c.Exportable,
		KeyUsage:            c.KeyUsage,
		EnhancedKeyUsage:    c.EnhancedKeyUsage,
		Policies:            c.Policies,
		SignTool:            c.SignTool,
		IdentificationKind:  c.IdentificationKind,
		TemplateOID:         c.TemplateOID,
		ValidityPeriod:      c.ValidityPeriod,
		ValidityPeriodUnits: c.ValidityPeriodUnits,
	}

	known := cadeskit.Attributes{}
	var oids []string
	for key, value := range c.Subject {
		if isDottedOID(key) {
			oids = append(oids, key)
			continue
		}
		name := cadeskit.Attribute(strings.ToUpper(key))
		if _, ok := cadeskit.AttributeOID(name); !ok {
			return plugin.CSRRequest{}, fmt.Errorf("unknown subject attribute %q", key)
		}
		known[name] = value
	}
	for _, name := range known.Names() {
		oid, _ := cadeskit.AttributeOID(name)
		req.Attributes = append(req.Attributes, plugin.CSRAttribute{OID: oid, Value: known[name]})
	}
	slices.Sort(oids)
	for _, oid := range oids {
		req.Attributes = append(req.Attributes, plugin.CSRAttribute{OID: oid, Value: c.Subject[oid]})
	}
	return req, nil
}

func isDottedOID(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	for _, arc := range strings.Split(s, ".") {
		if arc == "" || strings.Trim(arc, "0123456789") != "" {
			return false
		}
	}
	return true
}
