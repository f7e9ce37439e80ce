//go:build js && wasm

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/plugin"
)

// decode parses a Base64 certificate without the plugin.
// JS signature: cadeskitDecode(base64: string) → string (JSON) | Error
func decode(_ js.Value, args []js.Value) any {
	d, err := cadeskit.Decode(stringArg(args, 0))
	if err != nil {
		return jsError(err)
	}
	data, err := json.Marshal(d)
	if err != nil {
		return jsError(err)
	}
	return string(data)
}

// JS signature: cadeskitGetSystemInfo() → Promise<string>
func getSystemInfo(_ js.Value, _ []js.Value) any {
	return promise(func(ctx context.Context) (any, error) {
		return client.GetSystemInfo(ctx)
	})
}

// JS signature: cadeskitCheckSystem() → Promise<null>
func checkSystem(_ js.Value, _ []js.Value) any {
	return promise(func(ctx context.Context) (any, error) {
		return nil, client.CheckIsValidSystemSetup(ctx)
	})
}

// JS signature: cadeskitGetCertificates(scope?: string, reset?: boolean) → Promise<string>
func getCertificates(_ js.Value, args []js.Value) any {
	scope := plugin.ScopeAll
	if s := stringArg(args, 0); s != "" {
		parsed, err := plugin.ParseScope(s)
		if err != nil {
			return rejected(err.Error())
		}
		scope = parsed
	}
	reset := argAt(args, 1).Type() == js.TypeBoolean && argAt(args, 1).Bool()
	return promise(func(ctx context.Context) (any, error) {
		return client.GetCertificates(ctx, scope, reset)
	})
}

// JS signature: cadeskitFindCertificate(thumbprint: string) → Promise<string | null>
func findCertificate(_ js.Value, args []js.Value) any {
	thumbprint := stringArg(args, 0)
	return promise(func(ctx context.Context) (any, error) {
		cert, err := client.FindCertificateByThumbprint(ctx, thumbprint)
		if err != nil || cert == nil {
			return nil, err
		}
		return cert, nil
	})
}

// JS signature: cadeskitSign(thumbprint: string, data: Uint8Array | string,
// options?: {attached, excludeChain, skipValidation}) → Promise<string>
func sign(_ js.Value, args []js.Value) any {
	thumbprint := stringArg(args, 0)
	data, err := bytesArg(argAt(args, 1))
	if err != nil {
		return rejected(err.Error())
	}
	opts := signOptions(argAt(args, 2))
	return promise(func(ctx context.Context) (any, error) {
		cert, err := signer(ctx, thumbprint)
		if err != nil {
			return nil, err
		}
		return client.Sign(ctx, cert, data, opts)
	})
}

// JS signature: cadeskitSignHash(thumbprint: string, hexDigest: string, options?) → Promise<string>
func signHash(_ js.Value, args []js.Value) any {
	thumbprint := stringArg(args, 0)
	digest, err := hex.DecodeString(strings.ReplaceAll(stringArg(args, 1), " ", ""))
	if err != nil {
		return rejected(fmt.Sprintf("decoding digest: %v", err))
	}
	opts := signOptions(argAt(args, 2))
	return promise(func(ctx context.Context) (any, error) {
		cert, err := signer(ctx, thumbprint)
		if err != nil {
			return nil, err
		}
		return client.SignHash(ctx, cert, digest, opts)
	})
}

// JS signature: cadeskitSignXML(thumbprint: string, xml: string, type?: number, options?) → Promise<string>
func signXML(_ js.Value, args []js.Value) any {
	thumbprint := stringArg(args, 0)
	data, err := bytesArg(argAt(args, 1))
	if err != nil {
		return rejected(err.Error())
	}
	typ := cadeskit.XMLSignatureEnveloped
	if t := argAt(args, 2); t.Type() == js.TypeNumber {
		typ = cadeskit.XMLSignatureType(t.Int())
	}
	opts := signOptions(argAt(args, 3))
	return promise(func(ctx context.Context) (any, error) {
		cert, err := signer(ctx, thumbprint)
		if err != nil {
			return nil, err
		}
		return client.SignXML(ctx, cert, data, typ, opts)
	})
}

// JS signature: cadeskitEncrypt(data: Uint8Array | string, thumbprints: string[]) → Promise<string>
func encrypt(_ js.Value, args []js.Value) any {
	data, err := bytesArg(argAt(args, 0))
	if err != nil {
		return rejected(err.Error())
	}
	var thumbprints []string
	if arr := argAt(args, 1); arr.Type() == js.TypeObject {
		for i := range arr.Length() {
			thumbprints = append(thumbprints, arr.Index(i).String())
		}
	}
	return promise(func(ctx context.Context) (any, error) {
		recipients := make([]plugin.CertificateRef, 0, len(thumbprints))
		for _, t := range thumbprints {
			cert, err := signer(ctx, t)
			if err != nil {
				return nil, err
			}
			recipients = append(recipients, cert)
		}
		return client.Encrypt(ctx, data, recipients)
	})
}

// JS signature: cadeskitDecrypt(envelope: string) → Promise<Uint8Array>
func decrypt(_ js.Value, args []js.Value) any {
	envelope := stringArg(args, 0)
	return promise(func(ctx context.Context) (any, error) {
		return client.Decrypt(ctx, envelope)
	})
}

// reset drops every cached listing.
// JS signature: cadeskitReset() → boolean
func reset(_ js.Value, _ []js.Value) any {
	client.Reset()
	return true
}

func signOptions(opts js.Value) plugin.SignOptions {
	return plugin.SignOptions{
		Attached:       boolOption(opts, "attached"),
		ExcludeChain:   boolOption(opts, "excludeChain"),
		SkipValidation: boolOption(opts, "skipValidation"),
	}
}

// signer looks a certificate up by thumbprint.
func signer(ctx context.Context, thumbprint string) (*plugin.Certificate, error) {
	cert, err := client.FindCertificateByThumbprint(ctx, thumbprint)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, cadeskit.Missing(fmt.Sprintf("The certificate %s was not found.", cadeskit.NormalizeThumbprint(thumbprint)))
	}
	return cert, nil
}
