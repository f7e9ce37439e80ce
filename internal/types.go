package internal

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CertificateRecord is a catalog row describing one certificate seen in a
// plugin store.
type CertificateRecord struct {
	Thumbprint           string         `db:"thumbprint" json:"thumbprint" yaml:"thumbprint"`
	SubjectKeyIdentifier sql.NullString `db:"subject_key_identifier" json:"-" yaml:"-"`
	Name                 string         `db:"name" json:"name" yaml:"name"`
	IssuerName           string         `db:"issuer_name" json:"issuer_name" yaml:"issuer_name"`
	SubjectName          string         `db:"subject_name" json:"subject_name" yaml:"subject_name"`
	Algorithm            string         `db:"algorithm" json:"algorithm" yaml:"algorithm"`
	IsGOST               bool           `db:"is_gost" json:"is_gost" yaml:"is_gost"`
	HasPrivateKey        bool           `db:"has_private_key" json:"has_private_key" yaml:"has_private_key"`
	ProviderName         string         `db:"provider_name" json:"provider_name,omitempty" yaml:"provider_name,omitempty"`
	ProviderType         int            `db:"provider_type" json:"provider_type,omitempty" yaml:"provider_type,omitempty"`
	NotBefore            time.Time      `db:"not_before" json:"not_before" yaml:"not_before"`
	Expiry               time.Time      `db:"expiry" json:"expiry" yaml:"expiry"`
	SubjectJSON          types.JSONText `db:"subject" json:"subject" yaml:"-"`
	Base64               string         `db:"base64" json:"-" yaml:"-"`
	Source               string         `db:"source" json:"source" yaml:"source"`
	SeenAt               time.Time      `db:"seen_at" json:"seen_at" yaml:"seen_at"`
}

// SKI returns the subject key identifier, or "" when the certificate has none.
func (r CertificateRecord) SKI() string {
	return r.SubjectKeyIdentifier.String
}

// CatalogSummary holds aggregate counts of the catalog.
type CatalogSummary struct {
	Total      int `json:"total" yaml:"total"`
	GOST       int `json:"gost" yaml:"gost"`
	WithKey    int `json:"with_private_key" yaml:"with_private_key"`
	Expired    int `json:"expired" yaml:"expired"`
	WithoutKey int `json:"without_private_key" yaml:"without_private_key"`
}
