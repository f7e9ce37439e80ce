package cadeskit

// PluginErrors holds the canonical messages of the codes this module raises.
var PluginErrors = map[string]string{
	CodeDeasync:              "Failed to resolve a value returned by the plugin.",
	CodeNotInitialized:       "The CryptoPro browser plugin is not available. Check that the plugin and its browser extension are installed and enabled.",
	CodeLoadFailed:           "Failed to load the CryptoPro browser plugin library.",
	CodeUnsupportedPlugin:    "The installed CryptoPro browser plugin version is not supported. Update the plugin.",
	CodeUnsupportedCSP:       "The installed cryptographic provider version is not supported. Update the provider.",
	CodeCertificateParse:     "Failed to read the certificate.",
	CodeCertificateInvalid:   "The certificate cannot be used for signing.",
	CodeMissingArgument:      "Required data is missing.",
	CodeNoProvider:           "No supported cryptographic provider is installed. Install CryptoPro CSP or ViPNet CSP.",
	CodeUnknownXMLAlgorithm:  "The certificate key algorithm is not supported for XML signatures.",
	CodeReadersNeedCryptoPro: "Listing readers requires CryptoPro CSP.",
	CodeContainersNeedCrypto: "Listing key containers requires CryptoPro CSP.",
}

// CryptoProErrors maps host result codes to user-facing messages.
var CryptoProErrors = map[string]string{
	"0x8010006E": "The operation was cancelled by the user.",
	"0x800704C7": "The operation was cancelled by the user.",
	"0x8010000C": "No smart card or token is present in the reader.",
	"0x80100069": "The smart card or token was removed.",
	"0x80090016": "The key set does not exist. Check that the token with the private key is connected.",
	"0x8009000D": "The key does not exist.",
	"0x80090008": "The algorithm is not supported by the cryptographic provider.",
	"0x80090010": "Access to the key container was denied.",
	"0x80090019": "The cryptographic provider is not installed or not configured.",
	"0x8009001D": "The cryptographic provider failed to initialize.",
	"0x80090020": "An internal cryptographic provider error occurred.",
	"0x80092004": "The certificate was not found.",
	"0x8009200B": "The certificate has no private key bound to it.",
	"0x80093102": "The ASN.1 data is corrupted.",
	"0x800B010A": "The certificate chain could not be built to a trusted root.",
	"0x800B0109": "The certificate chain ends in an untrusted root.",
	"0x800B0101": "The certificate has expired or is not yet valid.",
	"0x800B010C": "The certificate has been revoked.",
	"0x80092012": "The revocation status of the certificate could not be checked.",
	"0x8007065B": "The cryptographic provider license has expired or is missing.",
	"0x8007000D": "The data is invalid.",
	"0x80070057": "An invalid parameter was passed to the plugin.",
	"0x8007052E": "The PIN is incorrect.",
	"0x8010006B": "The PIN is incorrect.",
	"0x8010006C": "The PIN is blocked.",
	"0x80880252": "The signature timestamp service is unavailable.",
	"0x8008000E": "The browser plugin object is not allowed on this site.",
}

// ErrorsWithoutCode maps host messages that carry no result code to one.
var ErrorsWithoutCode = map[string]string{
	"The action was cancelled by the user.":     "0x8010006E",
	"Действие было отменено пользователем.":     "0x8010006E",
	"The operation was canceled by the user.":   "0x800704C7",
	"Cannot find object or property.":           "0x80092004",
	"Не удается найти объект или свойство.":     "0x80092004",
	"Keyset does not exist":                     "0x80090016",
	"Набор ключей не существует":                "0x80090016",
	"The certificate chain could not be built.": "0x800B010A",
}
