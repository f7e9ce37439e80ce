package plugin

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// InstallCertificate installs an issued certificate (Base64 DER or PKCS#7)
// into the key container it was requested for. pin may be empty.
func (c *Client) InstallCertificate(ctx context.Context, certificate, pin string) error {
	if strings.TrimSpace(certificate) == "" {
		return cadeskit.Missing("The certificate to install is required.")
	}
	_, err := run(ctx, c, func(ctx context.Context, b host.Bridge) (struct{}, error) {
		enroll, err := createObject(ctx, b, cadeskit.ProgIDEnrollment)
		if err != nil {
			return struct{}{}, err
		}
		if _, err := b.Invoke(ctx, enroll, "Initialize", cadeskit.ContextUser); err != nil {
			return struct{}{}, cadeskit.FromHostError(err, "failed to install certificate")
		}
		_, err = b.Invoke(ctx, enroll, "InstallResponse", cadeskit.AllowUntrustedRoot, certificate, cadeskit.CryptStringBase64Any, pin)
		if err != nil {
			// Tokens without a registry copy of the request need the
			// container store.
			slog.Debug("installing certificate, retrying with container store", "error", err)
			_, err = b.Invoke(ctx, enroll, "InstallResponse", cadeskit.AllowUntrustedRoot|cadeskit.UseContainerStore, certificate, cadeskit.CryptStringBase64Any, pin)
		}
		if err != nil {
			return struct{}{}, cadeskit.FromHostError(err, "failed to install certificate")
		}
		c.trace("installed certificate")
		return struct{}{}, nil
	})
	return err
}

// CSRAttribute is one subject attribute of a certificate request.
type CSRAttribute struct {
	OID   string `json:"oid" yaml:"oid"`
	Value string `json:"value" yaml:"value"`
}

// CSRPolicy is a certificate policy with an optional qualifier.
type CSRPolicy struct {
	OID       string `json:"oid" yaml:"oid"`
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
}

// CSRRequest describes a key pair and the PKCS#10 request created for it.
type CSRRequest struct {
	ProviderName  string `json:"provider_name" yaml:"provider_name"`
	ProviderType  int    `json:"provider_type" yaml:"provider_type"`
	ContainerName string `json:"container_name" yaml:"container_name"`
	// ContainerPIN is set on the new container when not nil.
	ContainerPIN *string `json:"container_pin,omitempty" yaml:"container_pin,omitempty"`
	Exportable   bool    `json:"exportable" yaml:"exportable"`

	Attributes       []CSRAttribute `json:"attributes" yaml:"attributes"`
	KeyUsage         int            `json:"key_usage" yaml:"key_usage"`
	EnhancedKeyUsage []string       `json:"enhanced_key_usage" yaml:"enhanced_key_usage"`
	Policies         []CSRPolicy    `json:"policies" yaml:"policies"`
	// SignTool names the signing tool for the subjectSignTool extension.
	SignTool           string `json:"sign_tool" yaml:"sign_tool"`
	IdentificationKind int    `json:"identification_kind" yaml:"identification_kind"`

	// TemplateOID adds a certificate template extension when set.
	TemplateOID string `json:"template_oid,omitempty" yaml:"template_oid,omitempty"`
	// ValidityPeriod and ValidityPeriodUnits ("Years", 1) are sent as
	// request name-value pairs when both are set.
	ValidityPeriod      string `json:"validity_period,omitempty" yaml:"validity_period,omitempty"`
	ValidityPeriodUnits int    `json:"validity_period_units,omitempty" yaml:"validity_period_units,omitempty"`
}

// DistinguishedName renders the request subject in the X500 string form,
// doubling embedded quotes.
func (r CSRRequest) DistinguishedName() string {
	parts := make([]string, 0, len(r.Attributes))
	for _, a := range r.Attributes {
		parts = append(parts, a.OID+`="`+strings.ReplaceAll(a.Value, `"`, `""`)+`"`)
	}
	return strings.Join(parts, ", ")
}

// CreateCSR generates a key in a new container and returns the Base64
// PKCS#10 request with a request header.
func (c *Client) CreateCSR(ctx context.Context, req CSRRequest) (string, error) {
	if req.ContainerName == "" {
		return "", cadeskit.Missing("The key container name is required.")
	}
	if len(req.Attributes) == 0 {
		return "", cadeskit.Missing("The request subject is required.")
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (string, error) {
		e := &enrollment{ctx: ctx, b: b}
		csr := e.request(req)
		if e.err != nil {
			return "", cadeskit.FromHostError(e.err, "failed to create certificate request")
		}
		c.trace("created certificate request", "container", req.ContainerName)
		return csr, nil
	})
}

// enrollment walks the CertEnroll object model, stopping at the first
// failure.
type enrollment struct {
	ctx context.Context
	b   host.Bridge
	err error
}

func (e *enrollment) create(progID string) host.Object {
	if e.err != nil {
		return nil
	}
	var obj host.Object
	obj, e.err = e.b.CreateObject(e.ctx, progID)
	return obj
}

func (e *enrollment) set(obj host.Object, key string, value any) {
	if e.err != nil {
		return
	}
	e.err = e.b.Set(e.ctx, obj, key, value)
}

func (e *enrollment) call(obj host.Object, method string, args ...any) any {
	if e.err != nil {
		return nil
	}
	var v any
	v, e.err = e.b.Invoke(e.ctx, obj, method, args...)
	return v
}

func (e *enrollment) get(obj host.Object, key string) host.Object {
	if e.err != nil {
		return nil
	}
	var v host.Object
	v, e.err = host.GetObject(e.ctx, e.b, obj, key)
	return v
}

func (e *enrollment) objectID(oid string) host.Object {
	id := e.create(cadeskit.ProgIDObjectID)
	e.call(id, "InitializeFromValue", oid)
	return id
}

func (e *enrollment) request(req CSRRequest) string {
	key := e.create(cadeskit.ProgIDPrivateKey)
	e.set(key, "ProviderName", req.ProviderName)
	e.set(key, "ProviderType", req.ProviderType)
	e.set(key, "ContainerName", req.ContainerName)
	if req.ContainerPIN != nil {
		e.set(key, "Pin", *req.ContainerPIN)
	}
	exportPolicy := 0
	if req.Exportable {
		exportPolicy = cadeskit.AllowExportFlag
	}
	e.set(key, "ExportPolicy", exportPolicy)
	e.set(key, "KeySpec", cadeskit.KeySpecKeyExchange)

	pkcs10 := e.create(cadeskit.ProgIDCertificateRequest)
	e.call(pkcs10, "InitializeFromPrivateKey", cadeskit.ContextUser, key, "")

	dn := e.create(cadeskit.ProgIDDistinguishedName)
	e.call(dn, "Encode", req.DistinguishedName())
	e.set(pkcs10, "Subject", dn)

	extensions := e.get(pkcs10, "X509Extensions")

	keyUsage := e.create(cadeskit.ProgIDExtensionKeyUsage)
	e.call(keyUsage, "InitializeEncode", req.KeyUsage)
	e.call(extensions, "Add", keyUsage)

	usages := e.create(cadeskit.ProgIDObjectIDs)
	for _, oid := range req.EnhancedKeyUsage {
		e.call(usages, "Add", e.objectID(oid))
	}
	enhanced := e.create(cadeskit.ProgIDExtensionEnhancedKeyUsage)
	e.call(enhanced, "InitializeEncode", usages)
	e.call(extensions, "Add", enhanced)

	policies := e.create(cadeskit.ProgIDCertificatePolicies)
	for _, p := range req.Policies {
		policy := e.create(cadeskit.ProgIDCertificatePolicy)
		e.call(policy, "Initialize", e.objectID(p.OID))
		if p.Qualifier != "" {
			qualifier := e.create(cadeskit.ProgIDPolicyQualifier)
			e.call(qualifier, "InitializeEncode", p.Qualifier, cadeskit.PolicyQualifierUnknown)
			e.call(e.get(policy, "PolicyQualifiers"), "Add", qualifier)
		}
		e.call(policies, "Add", policy)
	}
	policiesExt := e.create(cadeskit.ProgIDExtensionCertificatePolicies)
	e.call(policiesExt, "InitializeEncode", policies)
	e.call(extensions, "Add", policiesExt)

	signTool := e.create(cadeskit.ProgIDExtension)
	e.call(signTool, "Initialize", e.objectID(cadeskit.OIDSubjectSignTool), cadeskit.CryptStringBase64, cadeskit.EncodeSubjectSignTool(req.SignTool))
	e.call(extensions, "Add", signTool)

	identification := e.create(cadeskit.ProgIDExtensionIdentificationKind)
	e.call(identification, "InitializeEncode", req.IdentificationKind)
	e.call(extensions, "Add", identification)

	if req.TemplateOID != "" {
		template := e.create(cadeskit.ProgIDExtensionTemplate)
		e.call(template, "InitializeEncode", e.objectID(req.TemplateOID), cadeskit.TemplateMajorVersion, cadeskit.TemplateMinorVersion)
		e.call(extensions, "Add", template)
	}

	if req.ValidityPeriod != "" && req.ValidityPeriodUnits != 0 {
		period := e.create(cadeskit.ProgIDNameValuePair)
		e.call(period, "Initialize", "ValidityPeriod", req.ValidityPeriod)
		units := e.create(cadeskit.ProgIDNameValuePair)
		e.call(units, "Initialize", "ValidityPeriodUnits", strconv.Itoa(req.ValidityPeriodUnits))
		pairs := e.get(pkcs10, "NameValuePairs")
		e.call(pairs, "Add", units)
		e.call(pairs, "Add", period)
	}

	enroll := e.create(cadeskit.ProgIDEnrollment)
	e.call(enroll, "InitializeFromRequest", pkcs10)
	v := e.call(enroll, "CreateRequest", cadeskit.CryptStringBase64Request)
	if e.err != nil {
		return ""
	}
	var csr string
	csr, e.err = host.AsString(v)
	return csr
}
