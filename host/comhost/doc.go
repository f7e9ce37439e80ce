// Package comhost drives the CAdESCOM automation objects installed with
// CryptoPro CSP on Windows. COM speaks the direct convention: calls return
// plain values and properties are assigned in place. On other platforms the
// loader reports that the plugin cannot be loaded.
package comhost
