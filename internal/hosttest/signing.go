package hosttest

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// SigningOptions scripts the signing, envelope and enrollment objects.
type SigningOptions struct {
	// InstallFailures makes that many InstallResponse calls fail first.
	InstallFailures int
	// SignErr makes every signing call fail.
	SignErr error
}

// Signature prefixes the fake signing results are built from.
const (
	CadesPrefix    = "CADES:"
	HashPrefix     = "HASH:"
	XMLPrefix      = "XMLDSIG:"
	EnvelopePrefix = "ENVELOPE:"
	CSRResult      = "MIIBCSR"
)

// InstallSigning registers CPSigner, CadesSignedData, HashedData,
// SignedXML, CPEnvelopedData and the CertEnroll objects.
func (h *Host) InstallSigning(opts SigningOptions) {
	var installFailures atomic.Int32
	installFailures.Store(int32(opts.InstallFailures))

	h.Register(cadeskit.ProgIDSigner, func() *Object { return h.NewObject("CPSigner") })
	h.Register(cadeskit.ProgIDHashedData, func() *Object {
		hashed := h.NewObject("HashedData")
		hashed.OnCall("SetHashValue", func(args ...any) (any, error) {
			hashed.SetProp("HashValue", arg(args, 0))
			return nil, nil
		})
		return hashed
	})
	h.Register(cadeskit.ProgIDSignedData, func() *Object {
		signed := h.NewObject("CadesSignedData")
		signed.OnCall("SignCades", func(args ...any) (any, error) {
			if opts.SignErr != nil {
				return nil, opts.SignErr
			}
			if err := requireCertificate(arg(args, 0)); err != nil {
				return nil, err
			}
			detached, _ := arg(args, 2).(bool)
			return fmt.Sprintf("%s%v:%v", CadesPrefix, detached, signed.Prop("Content")), nil
		})
		signed.OnCall("SignHash", func(args ...any) (any, error) {
			if opts.SignErr != nil {
				return nil, opts.SignErr
			}
			hashed, ok := arg(args, 0).(*Object)
			if !ok {
				return nil, errors.New("SignHash: hashed data expected")
			}
			if err := requireCertificate(arg(args, 1)); err != nil {
				return nil, err
			}
			return fmt.Sprintf("%s%v:%v", HashPrefix, hashed.Prop("Algorithm"), hashed.Prop("HashValue")), nil
		})
		return signed
	})
	h.Register(cadeskit.ProgIDSignedXML, func() *Object {
		signed := h.NewObject("SignedXML")
		signed.OnCall("Sign", func(args ...any) (any, error) {
			if opts.SignErr != nil {
				return nil, opts.SignErr
			}
			if err := requireCertificate(arg(args, 0)); err != nil {
				return nil, err
			}
			return fmt.Sprintf("%s%v", XMLPrefix, signed.Prop("SignatureMethod")), nil
		})
		return signed
	})
	h.Register(cadeskit.ProgIDEnvelopedData, func() *Object { return h.envelope() })

	h.Register(cadeskit.ProgIDEnrollment, func() *Object {
		enroll := h.NewObject("CX509Enrollment")
		enroll.Permissive = true
		enroll.OnCall("InstallResponse", func(...any) (any, error) {
			if installFailures.Add(-1) >= 0 {
				return nil, &host.Error{Message: "Cannot find object or property. (0x80092004)", Code: "0x80092004"}
			}
			return nil, nil
		})
		enroll.OnCall("CreateRequest", func(...any) (any, error) { return CSRResult, nil })
		return enroll
	})
	for _, progID := range []string{
		cadeskit.ProgIDPrivateKey,
		cadeskit.ProgIDCertificateRequest,
		cadeskit.ProgIDDistinguishedName,
		cadeskit.ProgIDExtension,
		cadeskit.ProgIDExtensionKeyUsage,
		cadeskit.ProgIDExtensionEnhancedKeyUsage,
		cadeskit.ProgIDExtensionCertificatePolicies,
		cadeskit.ProgIDExtensionTemplate,
		cadeskit.ProgIDExtensionIdentificationKind,
		cadeskit.ProgIDObjectID,
		cadeskit.ProgIDObjectIDs,
		cadeskit.ProgIDCertificatePolicy,
		cadeskit.ProgIDCertificatePolicies,
		cadeskit.ProgIDPolicyQualifier,
		cadeskit.ProgIDNameValuePair,
	} {
		name := strings.TrimPrefix(progID, "X509Enrollment.")
		h.Register(progID, func() *Object {
			obj := h.NewObject(name)
			obj.Permissive = true
			return obj
		})
	}
}

func (h *Host) envelope() *Object {
	env := h.NewObject("CPEnvelopedData")
	var recipients []any
	list := h.NewObject("Recipients")
	list.OnCall("Add", func(args ...any) (any, error) {
		if err := requireCertificate(arg(args, 0)); err != nil {
			return nil, err
		}
		recipients = append(recipients, arg(args, 0))
		return nil, nil
	})
	env.SetProp("Recipients", list)
	env.OnCall("Encrypt", func(...any) (any, error) {
		if len(recipients) == 0 {
			return nil, &host.Error{Message: "No recipients (0x80070057)", Code: "0x80070057"}
		}
		return fmt.Sprintf("%s%v", EnvelopePrefix, env.Prop("Content")), nil
	})
	env.OnCall("Decrypt", func(args ...any) (any, error) {
		s, _ := arg(args, 0).(string)
		content, ok := strings.CutPrefix(s, EnvelopePrefix)
		if !ok {
			return nil, &host.Error{Message: "The data is invalid. (0x8007000D)", Code: "0x8007000D"}
		}
		env.SetProp("Content", content)
		return nil, nil
	})
	return env
}

func requireCertificate(v any) error {
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("certificate expected, got %T", v)
	}
	if obj.Name() == "CPSigner" {
		if _, ok := obj.Prop("Certificate").(*Object); !ok {
			return &host.Error{Message: "The signer certificate is not set (0x80092004)", Code: "0x80092004"}
		}
	}
	return nil
}
