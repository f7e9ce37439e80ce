package internal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "modernc.org/sqlite"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/plugin"
)

// DB is the certificate catalog. It keeps a record of every certificate
// listed from the plugin so that lookups work offline.
type DB struct {
	*sqlx.DB
}

// NewDB creates and initializes a new in-memory database connection.
// All operations run in-memory. Use SaveToDisk/LoadFromDisk to persist or
// restore data.
func NewDB() (*DB, error) {
	// Each :memory: connection is a separate database, so the pool is pinned
	// to one connection. PRAGMAs are set via the DSN so they apply to
	// reconnections.
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	dbObj := &DB{DB: db}

	if err := dbObj.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	slog.Debug("database initialized")

	return dbObj, nil
}

// SaveToDisk writes the in-memory database to a file at the given path.
// VACUUM INTO refuses to overwrite, so the copy is written next to path and
// renamed over it.
func (db *DB) SaveToDisk(path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	_ = os.Remove(tmp)
	if _, err := db.Exec("VACUUM INTO ?", tmp); err != nil {
		return fmt.Errorf("saving database to %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving database to %s: %w", path, err)
	}
	slog.Info("database saved to disk", "path", path)
	return nil
}

// LoadFromDisk merges the certificates of an on-disk database into the
// in-memory database. The file is read once and then detached. Rows already
// present keep their in-memory version.
func (db *DB) LoadFromDisk(path string) error {
	_, err := db.Exec("ATTACH DATABASE ? AS diskdb", path)
	if err != nil {
		return fmt.Errorf("attaching database %s: %w", path, err)
	}
	defer func() {
		if _, err := db.Exec("DETACH DATABASE diskdb"); err != nil {
			slog.Warn("detaching database", "path", path, "error", err)
		}
	}()

	_, err = db.Exec("INSERT OR IGNORE INTO certificates SELECT * FROM diskdb.certificates")
	if err != nil {
		return fmt.Errorf("loading certificates from %s: %w", path, err)
	}

	slog.Info("database loaded from disk", "path", path)
	return nil
}

func (db *DB) initSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			thumbprint              text PRIMARY KEY,
			subject_key_identifier  text,
			name                    text NOT NULL,
			issuer_name             text NOT NULL,
			subject_name            text NOT NULL,
			algorithm               text NOT NULL,
			is_gost                 boolean NOT NULL,
			has_private_key         boolean NOT NULL,
			provider_name           text NOT NULL,
			provider_type           integer NOT NULL,
			not_before              timestamp NOT NULL,
			expiry                  timestamp NOT NULL,
			subject                 text,
			base64                  text NOT NULL,
			source                  text NOT NULL,
			seen_at                 timestamp NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating certificates table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_certificates_ski ON certificates (subject_key_identifier);
	`)
	if err != nil {
		return fmt.Errorf("creating subject key identifier index on certificates table: %w", err)
	}
	return nil
}

// RecordFromCertificate builds the catalog row of a normalized certificate.
func RecordFromCertificate(cert *plugin.Certificate, source string, seenAt time.Time) (CertificateRecord, error) {
	subject, err := json.Marshal(cert.Subject)
	if err != nil {
		return CertificateRecord{}, fmt.Errorf("encoding subject of %s: %w", cert.Thumbprint, err)
	}
	rec := CertificateRecord{
		Thumbprint:    cadeskit.NormalizeThumbprint(cert.Thumbprint),
		Name:          cert.Name,
		IssuerName:    cert.IssuerName,
		SubjectName:   cert.SubjectName,
		Algorithm:     cert.Algorithm,
		IsGOST:        cert.IsGOST,
		HasPrivateKey: cert.HasPrivateKey,
		ProviderName:  cert.ProviderName,
		ProviderType:  cert.ProviderType,
		NotBefore:     cert.NotBefore.UTC(),
		Expiry:        cert.NotAfter.UTC(),
		SubjectJSON:   types.JSONText(subject),
		Base64:        cert.Base64,
		Source:        source,
		SeenAt:        seenAt.UTC(),
	}
	if cert.SubjectKeyID != nil {
		rec.SubjectKeyIdentifier = sql.NullString{String: *cert.SubjectKeyID, Valid: true}
	}
	return rec, nil
}

const insertCertificate = `
	INSERT OR REPLACE INTO certificates (thumbprint, subject_key_identifier, name, issuer_name, subject_name, algorithm, is_gost, has_private_key, provider_name, provider_type, not_before, expiry, subject, base64, source, seen_at)
	VALUES (:thumbprint, :subject_key_identifier, :name, :issuer_name, :subject_name, :algorithm, :is_gost, :has_private_key, :provider_name, :provider_type, :not_before, :expiry, :subject, :base64, :source, :seen_at)
`

// InsertCertificate stores a certificate record, replacing an older record
// with the same thumbprint.
func (db *DB) InsertCertificate(cert CertificateRecord) error {
	_, err := db.NamedExec(insertCertificate, cert)
	if err != nil {
		return fmt.Errorf("inserting certificate: %w", err)
	}
	return nil
}

// SaveCertificates records every certificate of a listing in one
// transaction and returns the number stored.
func (db *DB) SaveCertificates(certs []*plugin.Certificate, source string, seenAt time.Time) (int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := 0
	for _, cert := range certs {
		rec, err := RecordFromCertificate(cert, source, seenAt)
		if err != nil {
			slog.Warn("skipping certificate", "thumbprint", cert.Thumbprint, "error", err)
			continue
		}
		_, err = tx.NamedExec(insertCertificate, rec)
		if err != nil {
			return 0, fmt.Errorf("inserting certificate %s: %w", rec.Thumbprint, err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing certificates: %w", err)
	}
	slog.Debug("certificates recorded", "source", source, "count", stored)
	return stored, nil
}

// GetAllCerts returns all certificate records ordered by expiry.
func (db *DB) GetAllCerts() ([]CertificateRecord, error) {
	var certs []CertificateRecord
	err := db.Select(&certs, "SELECT * FROM certificates ORDER BY expiry, thumbprint")
	if err != nil {
		return nil, fmt.Errorf("getting all certificates: %w", err)
	}
	return certs, nil
}

// GetCertByThumbprint returns the record with the given thumbprint. The
// thumbprint is normalized first, so values copied from system dialogs match.
func (db *DB) GetCertByThumbprint(thumbprint string) (*CertificateRecord, error) {
	var cert CertificateRecord
	err := db.Get(&cert, "SELECT * FROM certificates WHERE thumbprint = ?", cadeskit.NormalizeThumbprint(thumbprint))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting certificate by thumbprint: %w", err)
	}
	return &cert, nil
}

// GetCertBySKI returns the first record matching the given subject key
// identifier.
func (db *DB) GetCertBySKI(ski string) (*CertificateRecord, error) {
	var cert CertificateRecord
	err := db.Get(&cert, "SELECT * FROM certificates WHERE subject_key_identifier = ? ORDER BY expiry DESC LIMIT 1", cadeskit.NormalizeThumbprint(ski))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting certificate by SKI: %w", err)
	}
	return &cert, nil
}

// GetSummary queries the database for aggregate counts as of now.
func (db *DB) GetSummary(now time.Time) (*CatalogSummary, error) {
	s := &CatalogSummary{}

	if err := db.Get(&s.Total, "SELECT COUNT(*) FROM certificates"); err != nil {
		return nil, fmt.Errorf("counting certificates: %w", err)
	}
	if err := db.Get(&s.GOST, "SELECT COUNT(*) FROM certificates WHERE is_gost"); err != nil {
		return nil, fmt.Errorf("counting GOST certificates: %w", err)
	}
	if err := db.Get(&s.WithKey, "SELECT COUNT(*) FROM certificates WHERE has_private_key"); err != nil {
		return nil, fmt.Errorf("counting certificates with key: %w", err)
	}
	if err := db.Get(&s.Expired, "SELECT COUNT(*) FROM certificates WHERE expiry < ?", now.UTC()); err != nil {
		return nil, fmt.Errorf("counting expired certificates: %w", err)
	}
	s.WithoutKey = s.Total - s.WithKey

	return s, nil
}
