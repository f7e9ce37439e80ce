//go:build js && wasm

// Package main implements a WASM build of cadeskit for web pages. It wraps
// the window.cadesplugin object of the CryptoPro extension in a plugin
// client and exposes its operations as JavaScript functions returning
// promises.
package main

import (
	"syscall/js"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/host/jshost"
	"github.com/sensiblebit/cadeskit/plugin"
)

// version is set at build time via -ldflags "-X main.version=v0.6.1".
var version = "dev"

var client *plugin.Client

func main() {
	settings := cadeskit.DefaultSettings()
	if cfg := js.Global().Get("cadeskitSettings"); cfg.Type() == js.TypeString {
		if s, err := cadeskit.ParseSettings([]byte(cfg.String())); err == nil {
			settings = s
		} else {
			js.Global().Get("console").Call("warn", "cadeskit: ignoring cadeskitSettings: "+err.Error())
		}
	}
	client = plugin.New(jshost.Loader(jshost.DefaultGlobal), plugin.WithSettings(settings))

	js.Global().Set("cadeskitVersion", version)
	js.Global().Set("cadeskitDecode", js.FuncOf(decode))
	js.Global().Set("cadeskitGetSystemInfo", js.FuncOf(getSystemInfo))
	js.Global().Set("cadeskitCheckSystem", js.FuncOf(checkSystem))
	js.Global().Set("cadeskitGetCertificates", js.FuncOf(getCertificates))
	js.Global().Set("cadeskitFindCertificate", js.FuncOf(findCertificate))
	js.Global().Set("cadeskitSign", js.FuncOf(sign))
	js.Global().Set("cadeskitSignHash", js.FuncOf(signHash))
	js.Global().Set("cadeskitSignXML", js.FuncOf(signXML))
	js.Global().Set("cadeskitEncrypt", js.FuncOf(encrypt))
	js.Global().Set("cadeskitDecrypt", js.FuncOf(decrypt))
	js.Global().Set("cadeskitReset", js.FuncOf(reset))

	// Block forever; the module must not exit.
	select {}
}
