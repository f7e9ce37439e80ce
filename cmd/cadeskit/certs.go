package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/internal"
	"github.com/sensiblebit/cadeskit/plugin"
)

var (
	listScope      string
	listContainers bool

	findThumbprint  string
	findSKID        string
	findContainers  bool
	findOffline     bool
	validateInfo    string
	validateSkipKey bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the certificates available for signing",
	Long: `List the GOST certificates of the plugin stores. With --db the listing is
recorded in the SQLite catalog so that find --offline works without the plugin.`,
	Example: `  cadeskit list
  cadeskit list --scope usb --db certs.db
  cadeskit list --containers --format json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find a certificate by thumbprint or subject key identifier",
	Example: `  cadeskit find --thumbprint "a1 b2 c3 ..."
  cadeskit find --skid DEADBEEF --containers
  cadeskit find --thumbprint A1B2... --offline --db certs.db`,
	Args: cobra.NoArgs,
	RunE: runFind,
}

var validateCmd = &cobra.Command{
	Use:   "validate <thumbprint>",
	Short: "Check that a certificate can sign",
	Long: `Check that the certificate has a private key, is within its validity period
and uses a GOST algorithm. With --info a certificate field is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	listCmd.Flags().StringVarP(&listScope, "scope", "s", string(plugin.ScopeAll), "Stores to read: all, usb, registry or default")
	listCmd.Flags().BoolVar(&listContainers, "containers", false, "Enumerate key containers instead of stores")
	listCmd.Flags().BoolVar(&resetCache, "reset", false, "Ignore cached results")
	scopes := make([]string, 0, len(plugin.Scopes()))
	for _, s := range plugin.Scopes() {
		scopes = append(scopes, string(s))
	}
	registerCompletion(listCmd, completionInput{"scope", fixedCompletion(scopes...)})

	findCmd.Flags().StringVarP(&findThumbprint, "thumbprint", "t", "", "SHA-1 thumbprint, separators allowed")
	findCmd.Flags().StringVar(&findSKID, "skid", "", "Subject key identifier in hex")
	findCmd.Flags().BoolVar(&findContainers, "containers", false, "Search key containers when looking up by SKID")
	findCmd.Flags().BoolVar(&findOffline, "offline", false, "Search the --db catalog instead of the plugin")
	findCmd.MarkFlagsMutuallyExclusive("thumbprint", "skid")
	findCmd.MarkFlagsOneRequired("thumbprint", "skid")

	validateCmd.Flags().StringVar(&validateInfo, "info", "", "Print a field instead: subject, issuer, subject-email, issuer-email, subject-upn, issuer-upn, subject-dns, issuer-dns")
	validateCmd.Flags().BoolVar(&validateSkipKey, "allow-missing-key", false, "Accept certificates without a private key")
	registerCompletion(validateCmd, completionInput{"info", fixedCompletion(infoNames()...)})
	validateCmd.ValidArgsFunction = thumbprintCompletion
	registerCompletion(findCmd, completionInput{"thumbprint", thumbprintCompletion})
}

func runList(cmd *cobra.Command, _ []string) error {
	c, err := pluginClient()
	if err != nil {
		return err
	}
	scope, err := plugin.ParseScope(listScope)
	if err != nil {
		return err
	}

	var certs []*plugin.Certificate
	source := string(scope)
	if listContainers {
		source = "containers"
		certs, err = c.GetCertificatesFromContainers(cmd.Context(), resetCache)
	} else {
		certs, err = c.GetCertificates(cmd.Context(), scope, resetCache)
	}
	if err != nil {
		return err
	}

	if dbPath != "" {
		if err := recordListing(certs, source); err != nil {
			return err
		}
	}

	now := time.Now()
	expired, withoutKey := 0, 0
	for _, cert := range certs {
		if now.After(cert.NotAfter) {
			expired++
		}
		if !cert.HasPrivateKey {
			withoutKey++
		}
	}
	return printResult(cmd, certs, func(sb *strings.Builder) {
		for _, cert := range certs {
			fmt.Fprintf(sb, "%s  %s  %s  %s\n", cert.Thumbprint, cert.NotAfter.Format(time.DateOnly), cert.Name, cert.IssuerName)
		}
		fmt.Fprintf(sb, "%d certificates%s\n", len(certs), internal.CertAnnotation(expired, withoutKey))
	})
}

// recordListing merges a listing into the on-disk catalog.
func recordListing(certs []*plugin.Certificate, source string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.SaveCertificates(certs, source, time.Now())
	if err != nil {
		return err
	}
	slog.Debug("catalog updated", "path", dbPath, "stored", n)
	return db.SaveToDisk(dbPath)
}

// openCatalog returns the in-memory catalog loaded from --db when the file
// exists.
func openCatalog() (*internal.DB, error) {
	db, err := internal.NewDB()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); err == nil {
		if err := db.LoadFromDisk(dbPath); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		_ = db.Close()
		return nil, fmt.Errorf("reading catalog %s: %w", dbPath, err)
	}
	return db, nil
}

func runFind(cmd *cobra.Command, _ []string) error {
	if findOffline {
		return findInCatalog(cmd)
	}
	c, err := pluginClient()
	if err != nil {
		return err
	}

	var cert *plugin.Certificate
	switch {
	case findThumbprint != "":
		cert, err = c.FindCertificateByThumbprint(cmd.Context(), findThumbprint)
	case findContainers:
		cert, err = c.FindCertificateBySKIDFromContainers(cmd.Context(), findSKID)
	default:
		cert, err = c.FindCertificateBySKID(cmd.Context(), findSKID)
	}
	if err != nil {
		return err
	}
	if cert == nil {
		return errors.New("certificate not found")
	}
	return printResult(cmd, cert, func(sb *strings.Builder) {
		writeCertificate(sb, cert)
	})
}

func findInCatalog(cmd *cobra.Command) error {
	if dbPath == "" {
		return errors.New("--offline requires --db")
	}
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	var rec *internal.CertificateRecord
	if findThumbprint != "" {
		rec, err = db.GetCertByThumbprint(findThumbprint)
	} else {
		rec, err = db.GetCertBySKI(findSKID)
	}
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New("certificate not found in catalog")
	}
	return printResult(cmd, rec, func(sb *strings.Builder) {
		fmt.Fprintf(sb, "Name:        %s\n", rec.Name)
		fmt.Fprintf(sb, "Subject:     %s\n", rec.SubjectName)
		fmt.Fprintf(sb, "Issuer:      %s\n", rec.IssuerName)
		fmt.Fprintf(sb, "Thumbprint:  %s\n", rec.Thumbprint)
		fmt.Fprintf(sb, "Not After:   %s\n", rec.Expiry.Format(time.RFC3339))
		fmt.Fprintf(sb, "Private key: %s\n", yesNo(rec.HasPrivateKey))
		fmt.Fprintf(sb, "Seen:        %s in %s\n", rec.SeenAt.Format(time.RFC3339), rec.Source)
	})
}

func writeCertificate(sb *strings.Builder, cert *plugin.Certificate) {
	fmt.Fprintf(sb, "Name:        %s\n", cert.Name)
	fmt.Fprintf(sb, "Subject:     %s\n", internal.FormatAttributes(cert.Subject))
	fmt.Fprintf(sb, "Issuer:      %s\n", cert.IssuerName)
	fmt.Fprintf(sb, "Thumbprint:  %s\n", cert.Thumbprint)
	fmt.Fprintf(sb, "Not Before:  %s\n", cert.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(sb, "Not After:   %s\n", cert.NotAfter.Format(time.RFC3339))
	fmt.Fprintf(sb, "Algorithm:   %s\n", cert.Algorithm)
	if cert.SubjectKeyID != nil {
		fmt.Fprintf(sb, "SKI:         %s\n", *cert.SubjectKeyID)
	}
	fmt.Fprintf(sb, "Private key: %s\n", yesNo(cert.HasPrivateKey))
	if cert.ProviderName != "" {
		fmt.Fprintf(sb, "Provider:    %s (type %d)\n", cert.ProviderName, cert.ProviderType)
	}
}

var infoTypes = []struct {
	name string
	typ  cadeskit.CertInfoType
}{
	{"subject", cadeskit.CertInfoSubjectSimpleName},
	{"issuer", cadeskit.CertInfoIssuerSimpleName},
	{"subject-email", cadeskit.CertInfoSubjectEmailName},
	{"issuer-email", cadeskit.CertInfoIssuerEmailName},
	{"subject-upn", cadeskit.CertInfoSubjectUPN},
	{"issuer-upn", cadeskit.CertInfoIssuerUPN},
	{"subject-dns", cadeskit.CertInfoSubjectDNSName},
	{"issuer-dns", cadeskit.CertInfoIssuerDNSName},
}

func infoNames() []string {
	names := make([]string, len(infoTypes))
	for i, it := range infoTypes {
		names[i] = it.name
	}
	return names
}

func parseInfoType(name string) (cadeskit.CertInfoType, error) {
	for _, it := range infoTypes {
		if it.name == name {
			return it.typ, nil
		}
	}
	return 0, fmt.Errorf("unknown certificate field %q", name)
}

type validation struct {
	Thumbprint string `json:"thumbprint" yaml:"thumbprint"`
	Valid      bool   `json:"valid" yaml:"valid"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	c, err := pluginClient()
	if err != nil {
		return err
	}
	cert, err := certificateByThumbprint(cmd, c, args[0])
	if err != nil {
		return err
	}

	if validateInfo != "" {
		typ, err := parseInfoType(validateInfo)
		if err != nil {
			return err
		}
		value, err := c.CertInfo(cmd.Context(), cert, typ)
		if err != nil {
			return err
		}
		return printResult(cmd, map[string]string{validateInfo: value}, func(sb *strings.Builder) {
			sb.WriteString(value + "\n")
		})
	}

	var check plugin.CertificateCheck
	if validateSkipKey {
		check = allowMissingKey(time.Now)
	}
	msg, err := c.ValidateCertificate(cmd.Context(), cert, check)
	if err != nil {
		return err
	}
	res := validation{Thumbprint: cert.Thumbprint, Valid: msg == "", Message: msg}
	if err := printResult(cmd, res, func(sb *strings.Builder) {
		if res.Valid {
			sb.WriteString("Certificate is valid\n")
			return
		}
		fmt.Fprintf(sb, "Certificate is not valid: %s\n", msg)
	}); err != nil {
		return err
	}
	if !res.Valid {
		return errors.New("certificate validation failed")
	}
	return nil
}

// allowMissingKey checks validity and algorithm only.
func allowMissingKey(now func() time.Time) plugin.CertificateCheck {
	return func(_ context.Context, cert *plugin.Certificate) (string, error) {
		t := now()
		switch {
		case t.After(cert.NotAfter):
			return "the certificate has expired", nil
		case t.Before(cert.NotBefore):
			return "the certificate is not yet valid", nil
		case !cert.IsGOST:
			return "the certificate does not use a GOST algorithm", nil
		}
		return "", nil
	}
}

func certificateByThumbprint(cmd *cobra.Command, c *plugin.Client, thumbprint string) (*plugin.Certificate, error) {
	cert, err := c.FindCertificateByThumbprint(cmd.Context(), thumbprint)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, fmt.Errorf("certificate %s not found", cadeskit.NormalizeThumbprint(thumbprint))
	}
	return cert, nil
}
