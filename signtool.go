package cadeskit

import (
	"encoding/base64"
	"unicode/utf8"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// EncodeSubjectSignTool returns the Base64 DER UTF8String carried by the
// subjectSignTool extension. The name is cut on a rune boundary to
// SignToolNameMaxLength bytes.
func EncodeSubjectSignTool(name string) string {
	if len(name) > SignToolNameMaxLength {
		cut := SignToolNameMaxLength
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.UTF8String, func(child *cryptobyte.Builder) {
		child.AddBytes([]byte(name))
	})
	return base64.StdEncoding.EncodeToString(b.BytesOrPanic())
}
