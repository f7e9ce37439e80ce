package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host"
)

// Scope selects which certificate stores GetCertificates reads.
type Scope string

const (
	// ScopeAll reads the token container store and the personal registry
	// store, dropping duplicates by thumbprint.
	ScopeAll Scope = "all"
	// ScopeUSBToken reads the container store of connected tokens.
	ScopeUSBToken Scope = "usb"
	// ScopeRegistry reads the personal store of the current user.
	ScopeRegistry Scope = "registry"
	// ScopeDefault reads the store OpenStore opens without options.
	ScopeDefault Scope = "default"
)

// Scopes returns every Scope.
func Scopes() []Scope {
	return []Scope{ScopeAll, ScopeUSBToken, ScopeRegistry, ScopeDefault}
}

// ParseScope parses a scope name.
func ParseScope(s string) (Scope, error) {
	for _, scope := range Scopes() {
		if strings.EqualFold(s, string(scope)) {
			return scope, nil
		}
	}
	return "", fmt.Errorf("unknown certificate scope %q", s)
}

// Store is an open certificate store.
type Store struct {
	obj host.Object
	b   host.Bridge
}

// Object returns the host store object.
func (s *Store) Object() host.Object {
	return s.obj
}

// Close closes the store.
func (s *Store) Close(ctx context.Context) error {
	if _, err := s.b.Invoke(ctx, s.obj, "Close"); err != nil {
		return cadeskit.FromHostError(err, "failed to close certificate store")
	}
	return nil
}

type storeOptions struct {
	location cadeskit.StoreLocation
	name     string
	mode     int
}

// StoreOption configures OpenStore.
type StoreOption func(*storeOptions)

// WithLocation sets the store location. The default is the current user.
func WithLocation(l cadeskit.StoreLocation) StoreOption {
	return func(o *storeOptions) { o.location = l }
}

// WithName sets the store name. The default is "My".
func WithName(name string) StoreOption {
	return func(o *storeOptions) { o.name = name }
}

// WithMode sets the open mode flags. The default opens existing stores only.
func WithMode(mode int) StoreOption {
	return func(o *storeOptions) { o.mode = mode }
}

// OpenStore opens a certificate store. The caller must Close it.
func (c *Client) OpenStore(ctx context.Context, opts ...StoreOption) (*Store, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (*Store, error) {
		return openStore(ctx, b, opts...)
	})
}

func openStore(ctx context.Context, b host.Bridge, opts ...StoreOption) (*Store, error) {
	o := storeOptions{
		location: cadeskit.StoreCurrentUser,
		name:     cadeskit.StoreMy,
		mode:     cadeskit.StoreOpenExistingOnly,
	}
	for _, opt := range opts {
		opt(&o)
	}

	obj, err := createObject(ctx, b, cadeskit.ProgIDStore)
	if err != nil {
		return nil, err
	}
	s := &Store{obj: obj, b: b}
	if _, err := b.Invoke(ctx, obj, "Open", int(o.location), o.name, o.mode); err != nil {
		if cerr := s.Close(ctx); cerr != nil {
			slog.Debug("closing store after failed open", "error", cerr)
		}
		return nil, cadeskit.FromHostError(err, "failed to open certificate store")
	}
	slog.Debug("opened certificate store", "location", int(o.location), "name", o.name)
	return s, nil
}

// GetCertificates lists the GOST certificates of scope. Certificates that
// fail to read are skipped. The result is cached per scope until reset or
// Reset.
func (c *Client) GetCertificates(ctx context.Context, scope Scope, reset bool) ([]*Certificate, error) {
	entry, ok := c.caches.certificates[scope]
	if !ok {
		return nil, cadeskit.Missing(fmt.Sprintf("Unknown certificate scope %q.", scope))
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) ([]*Certificate, error) {
		certs, err := fill(ctx, c, "certificates:"+string(scope), entry, reset, func(ctx context.Context) ([]*Certificate, error) {
			return c.certificates(ctx, b, scope)
		})
		return cloneList(certs), err
	})
}

func (c *Client) certificates(ctx context.Context, b host.Bridge, scope Scope) ([]*Certificate, error) {
	var certs []*Certificate
	var err error
	switch scope {
	case ScopeUSBToken:
		certs, err = c.readStore(ctx, b, WithLocation(cadeskit.StoreContainer))
	case ScopeRegistry:
		certs, err = c.readStore(ctx, b, WithMode(cadeskit.StoreOpenMaximumAllowed))
	case ScopeAll:
		var usb, registry []*Certificate
		if usb, err = c.readStore(ctx, b, WithLocation(cadeskit.StoreContainer)); err != nil {
			return nil, err
		}
		if registry, err = c.readStore(ctx, b, WithMode(cadeskit.StoreOpenMaximumAllowed)); err != nil {
			return nil, err
		}
		certs = dedupe(append(usb, registry...))
	default:
		certs, err = c.readStore(ctx, b)
	}
	if err != nil {
		return nil, err
	}
	c.trace("listed certificates", "scope", scope, "count", len(certs))
	return certs, nil
}

func dedupe(certs []*Certificate) []*Certificate {
	seen := make(map[string]bool, len(certs))
	out := certs[:0]
	for _, cert := range certs {
		if seen[cert.Thumbprint] {
			continue
		}
		seen[cert.Thumbprint] = true
		out = append(out, cert)
	}
	return out
}

func (c *Client) readStore(ctx context.Context, b host.Bridge, opts ...StoreOption) (certs []*Certificate, err error) {
	store, err := openStore(ctx, b, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(ctx); cerr != nil {
			slog.Debug("closing certificate store", "error", cerr)
		}
	}()
	return c.storeCertificates(ctx, b, store.obj)
}

// storeCertificates reads a store from the last item to the first.
func (c *Client) storeCertificates(ctx context.Context, b host.Bridge, store host.Object) ([]*Certificate, error) {
	list, err := host.GetObject(ctx, b, store, "Certificates")
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to list certificates")
	}
	count, err := host.GetInt(ctx, b, list, "Count")
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to list certificates")
	}

	result := []*Certificate{}
	for i := count; i > 0; i-- {
		cert, err := c.readItem(ctx, b, list, i)
		if err != nil {
			if isCancellation(err) {
				return nil, err
			}
			slog.Debug("skipping certificate", "index", i, "error", err)
			continue
		}
		if cert.IsGOST {
			result = append(result, cert)
		}
	}
	return result, nil
}

func (c *Client) readItem(ctx context.Context, b host.Bridge, list host.Object, i int) (*Certificate, error) {
	obj, err := host.InvokeObject(ctx, b, list, "Item", i)
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to read certificate")
	}
	return c.normalize(ctx, b, Raw{Object: obj})
}

// GetCertificatesFromContainers lists the GOST certificates bound to
// CryptoPro key containers.
func (c *Client) GetCertificatesFromContainers(ctx context.Context, reset bool) ([]*Certificate, error) {
	return run(ctx, c, func(ctx context.Context, b host.Bridge) ([]*Certificate, error) {
		certs, err := fill(ctx, c, "containers", &c.caches.containers, reset, func(ctx context.Context) ([]*Certificate, error) {
			return c.containerCertificates(ctx, b)
		})
		return cloneList(certs), err
	})
}

func (c *Client) containerCertificates(ctx context.Context, b host.Bridge) ([]*Certificate, error) {
	info, err := c.GetSystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	if !info.CryptoProInstalled {
		return nil, cadeskit.NewError(cadeskit.CodeContainersNeedCrypto, "failed to list key containers", nil)
	}
	certs, err := c.walkContainers(ctx, b)
	if err != nil {
		return nil, cadeskit.FromHostError(err, "failed to list key containers")
	}
	c.trace("listed container certificates", "count", len(certs))
	return certs, nil
}

func (c *Client) walkContainers(ctx context.Context, b host.Bridge) ([]*Certificate, error) {
	csp, err := cspInformation(ctx, b)
	if err != nil {
		return nil, err
	}
	containers, err := host.InvokeObject(ctx, b, csp, "EnumContainers")
	if err != nil {
		return nil, err
	}
	count, err := host.GetInt(ctx, b, containers, "Count")
	if err != nil {
		return nil, err
	}

	result := []*Certificate{}
	for i := range count {
		container, err := host.InvokeObject(ctx, b, containers, "ItemByIndex", i)
		if err != nil {
			return nil, err
		}
		keys, err := host.GetObject(ctx, b, container, "Keys")
		if err != nil {
			return nil, err
		}
		keyCount, err := host.GetInt(ctx, b, keys, "Count")
		if err != nil {
			return nil, err
		}
		for k := range keyCount {
			key, err := host.InvokeObject(ctx, b, keys, "ItemByIndex", k)
			if err != nil {
				return nil, err
			}
			has, err := host.GetBool(ctx, b, key, "HasCertificate")
			if err != nil {
				return nil, err
			}
			if !has {
				continue
			}
			obj, err := host.GetObject(ctx, b, key, "Certificate")
			if err != nil {
				return nil, err
			}
			cert, err := c.normalize(ctx, b, Raw{Object: obj})
			if err != nil {
				return nil, err
			}
			if cert.IsGOST {
				result = append(result, cert)
			}
		}
	}
	return result, nil
}

// FindCertificateByThumbprint looks a certificate up in the default store.
// It returns nil without error when none matches.
func (c *Client) FindCertificateByThumbprint(ctx context.Context, thumbprint string) (*Certificate, error) {
	thumb := cadeskit.NormalizeThumbprint(thumbprint)
	if thumb == "" {
		return nil, cadeskit.Missing("The thumbprint of the certificate to find is required.")
	}
	return run(ctx, c, func(ctx context.Context, b host.Bridge) (*Certificate, error) {
		store, err := openStore(ctx, b)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := store.Close(ctx); cerr != nil {
				slog.Debug("closing certificate store", "error", cerr)
			}
		}()

		list, err := host.GetObject(ctx, b, store.obj, "Certificates")
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to find certificate")
		}
		found, err := host.InvokeObject(ctx, b, list, "Find", cadeskit.FindSHA1Hash, thumb)
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to find certificate")
		}
		count, err := host.GetInt(ctx, b, found, "Count")
		if err != nil {
			return nil, cadeskit.FromHostError(err, "failed to find certificate")
		}
		if count == 0 {
			return nil, nil
		}
		return c.readItem(ctx, b, found, 1)
	})
}

// FindCertificateBySKID returns the certificate of ScopeAll whose Subject
// Key Identifier equals skid, or nil.
func (c *Client) FindCertificateBySKID(ctx context.Context, skid string) (*Certificate, error) {
	if skid == "" {
		return nil, cadeskit.Missing("The subject key identifier of the certificate to find is required.")
	}
	certs, err := c.GetCertificates(ctx, ScopeAll, false)
	if err != nil {
		return nil, err
	}
	return bySKID(certs, skid), nil
}

// FindCertificateBySKIDFromContainers is FindCertificateBySKID over the
// certificates of CryptoPro key containers.
func (c *Client) FindCertificateBySKIDFromContainers(ctx context.Context, skid string) (*Certificate, error) {
	if skid == "" {
		return nil, cadeskit.Missing("The subject key identifier of the certificate to find is required.")
	}
	certs, err := c.GetCertificatesFromContainers(ctx, false)
	if err != nil {
		return nil, err
	}
	return bySKID(certs, skid), nil
}

func bySKID(certs []*Certificate, skid string) *Certificate {
	want := strings.ToUpper(skid)
	for _, cert := range certs {
		if cert.SubjectKeyID != nil && *cert.SubjectKeyID == want {
			return cert
		}
	}
	return nil
}
