package hosttest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// CertOptions scripts the private-key side of a fake certificate.
type CertOptions struct {
	HasPrivateKey bool
	ProviderName  string
	ProviderType  int
	// PrivateKeyErr makes HasPrivateKey and PrivateKey raise.
	PrivateKeyErr error
}

// Certificate returns a fake ICertificate backed by der.
func (h *Host) Certificate(der []byte, opts CertOptions) *Object {
	d, err := cadeskit.DecodeDER(der)
	if err != nil {
		panic(fmt.Sprintf("hosttest: invalid certificate: %v", err))
	}
	cert := h.NewObject("Certificate")
	cert.SetProp("SubjectName", distinguishedName(d.Subject))
	cert.SetProp("IssuerName", distinguishedName(d.Issuer))
	cert.SetProp("Thumbprint", d.Thumbprint)
	cert.SetProp("SerialNumber", d.SerialNumber)
	cert.SetProp("ValidFromDate", d.NotBefore)
	cert.SetProp("ValidToDate", d.NotAfter)
	cert.OnCall("GetInfo", func(args ...any) (any, error) {
		switch arg(args, 0) {
		case int(cadeskit.CertInfoSubjectSimpleName):
			return d.Subject.Get(cadeskit.AttrCommonName), nil
		case int(cadeskit.CertInfoIssuerSimpleName):
			return d.Issuer.Get(cadeskit.AttrCommonName), nil
		case int(cadeskit.CertInfoSubjectEmailName):
			return d.Subject.Get(cadeskit.AttrEmail), nil
		}
		return "", nil
	})
	cert.OnCall("Export", func(...any) (any, error) {
		return base64.StdEncoding.EncodeToString(der), nil
	})
	cert.OnCall("HasPrivateKey", func(...any) (any, error) {
		if opts.PrivateKeyErr != nil {
			return nil, opts.PrivateKeyErr
		}
		return opts.HasPrivateKey, nil
	})
	key := h.NewObject("PrivateKey").
		SetProp("ProviderName", opts.ProviderName).
		SetProp("ProviderType", opts.ProviderType)
	cert.SetProp("PrivateKey", PropFunc(func() (any, error) {
		if opts.PrivateKeyErr != nil || !opts.HasPrivateKey {
			return nil, &host.Error{Message: "Keyset does not exist (0x80090016)", Code: "0x80090016"}
		}
		return key, nil
	}))
	return cert
}

func distinguishedName(attrs cadeskit.Attributes) string {
	var parts []string
	for _, name := range attrs.Names() {
		parts = append(parts, string(name)+"="+attrs.Get(name))
	}
	return strings.Join(parts, ", ")
}

// Collection returns a fake collection with Count, 1-based Item and
// 0-based ItemByIndex.
func (h *Host) Collection(name string, items []*Object) *Object {
	c := h.NewObject(name)
	c.SetProp("Count", len(items))
	c.OnCall("Item", func(args ...any) (any, error) {
		i, _ := arg(args, 0).(int)
		if i < 1 || i > len(items) {
			return nil, &host.Error{Message: "Invalid index (0x80070057)", Code: "0x80070057"}
		}
		return items[i-1], nil
	})
	c.OnCall("ItemByIndex", func(args ...any) (any, error) {
		i, _ := arg(args, 0).(int)
		if i < 0 || i >= len(items) {
			return nil, &host.Error{Message: "Invalid index (0x80070057)", Code: "0x80070057"}
		}
		return items[i], nil
	})
	return c
}

// Reader describes a fake card reader.
type Reader struct {
	Name         string
	NickName     string
	Media        string
	CarrierFlags int
}

// License describes the fake product licenses.
type License struct {
	Valid            bool
	ValidTo          string
	FirstInstallDate string
	CompanyName      string
	SerialNumber     string
}

// System describes the simulated workstation.
type System struct {
	// PluginVersion is reported through About.PluginVersion.toString().
	PluginVersion string
	// Version is the legacy About.Version fallback.
	Version string
	// Providers are the installed CSPs with their versions.
	Providers []cadeskit.CryptoProvider
	// Stores maps store locations to the certificates they hold.
	Stores map[cadeskit.StoreLocation][]*Object
	// Containers maps container names to their certificate, nil for a key
	// without one.
	Containers map[string]*Object
	Readers    []Reader
	License    License
}

// Install registers About, Store, CPLicense and CCspInformation factories
// behaving like sys.
func (h *Host) Install(sys System) {
	h.Register(cadeskit.ProgIDAbout, func() *Object { return h.about(sys) })
	h.Register(cadeskit.ProgIDStore, func() *Object { return h.store(sys) })
	h.Register(cadeskit.ProgIDLicense, func() *Object { return h.license(sys) })
	h.Register(cadeskit.ProgIDCSPInformation, func() *Object { return h.cspInformation(sys) })
}

func (h *Host) about(sys System) *Object {
	about := h.NewObject("About")
	if sys.PluginVersion != "" {
		version := h.NewObject("PluginVersion")
		version.OnCall("toString", func(...any) (any, error) { return sys.PluginVersion, nil })
		about.SetProp("PluginVersion", version)
	} else {
		about.SetProp("PluginVersion", nil)
	}
	about.SetProp("Version", sys.Version)
	about.OnCall("CSPVersion", func(args ...any) (any, error) {
		name, _ := arg(args, 0).(string)
		typ, _ := arg(args, 1).(int)
		for _, p := range sys.Providers {
			if p.Name == name && p.Type == typ {
				return h.NewObject("CSPVersion").
					SetProp("MajorVersion", p.MajorVersion).
					SetProp("MinorVersion", p.MinorVersion).
					SetProp("BuildVersion", p.BuildVersion), nil
			}
		}
		return nil, &host.Error{Message: "Provider type not defined (0x80090017)", Code: "0x80090017"}
	})
	return about
}

func (h *Host) store(sys System) *Object {
	store := h.NewObject("Store")
	var location cadeskit.StoreLocation
	opened := false
	store.OnCall("Open", func(args ...any) (any, error) {
		loc, _ := arg(args, 0).(int)
		location = cadeskit.StoreLocation(loc)
		if _, ok := sys.Stores[location]; !ok {
			return nil, &host.Error{Message: "The system cannot find the file specified. (0x80070002)", Code: "0x80070002"}
		}
		opened = true
		return nil, nil
	})
	store.OnCall("Close", func(...any) (any, error) {
		opened = false
		return nil, nil
	})
	store.SetProp("Certificates", PropFunc(func() (any, error) {
		if !opened {
			return nil, errors.New("store is not open")
		}
		return h.certificates(sys.Stores[location]), nil
	}))
	return store
}

func (h *Host) certificates(certs []*Object) *Object {
	c := h.Collection("Certificates", certs)
	c.OnCall("Find", func(args ...any) (any, error) {
		thumb, _ := arg(args, 1).(string)
		var found []*Object
		for _, cert := range certs {
			if strings.EqualFold(cert.Prop("Thumbprint").(string), thumb) {
				found = append(found, cert)
			}
		}
		return h.certificates(found), nil
	})
	return c
}

func (h *Host) license(sys System) *Object {
	lic := h.NewObject("CPLicense")
	lic.OnCall("IsValid", func(...any) (any, error) { return sys.License.Valid, nil })
	lic.OnCall("ValidTo", func(...any) (any, error) { return sys.License.ValidTo, nil })
	lic.OnCall("FirstInstallDate", func(...any) (any, error) { return sys.License.FirstInstallDate, nil })
	lic.OnCall("CompanyName", func(...any) (any, error) { return sys.License.CompanyName, nil })
	lic.OnCall("SerialNumber", func(...any) (any, error) { return sys.License.SerialNumber, nil })
	return lic
}

func (h *Host) cspInformation(sys System) *Object {
	info := h.NewObject("CCspInformation")
	info.OnCall("InitializeFromName", func(...any) (any, error) { return nil, nil })
	info.OnCall("GetReaderModes", func(...any) (any, error) {
		var modes []*Object
		for _, r := range sys.Readers {
			modes = append(modes, h.NewObject("ReaderMode").
				SetProp("Name", r.Name).
				SetProp("NickName", r.NickName).
				SetProp("Media", r.Media).
				SetProp("CarrierFlags", r.CarrierFlags))
		}
		return h.Collection("ReaderModes", modes), nil
	})
	info.OnCall("EnumContainers", func(...any) (any, error) {
		var containers []*Object
		for name, cert := range sys.Containers {
			key := h.NewObject("ContainerKey").SetProp("HasCertificate", cert != nil)
			if cert != nil {
				key.SetProp("Certificate", cert)
			}
			containers = append(containers, h.NewObject("Container").
				SetProp("Name", name).
				SetProp("Keys", h.Collection("ContainerKeys", []*Object{key})))
		}
		return h.Collection("Containers", containers), nil
	})
	return info
}
