package cadeskit

// ProgIDs of the host objects created through CreateObject.
const (
	ProgIDStore                        = "CAdESCOM.Store"
	ProgIDSigner                       = "CAdESCOM.CPSigner"
	ProgIDSignedXML                    = "CAdESCOM.SignedXML"
	ProgIDAbout                        = "CAdESCOM.About"
	ProgIDSignedData                   = "CAdESCOM.CadesSignedData"
	ProgIDHashedData                   = "CAdESCOM.HashedData"
	ProgIDEnvelopedData                = "CAdESCOM.CPEnvelopedData"
	ProgIDCertificate                  = "CAdESCOM.Certificate"
	ProgIDLicense                      = "CAdESCOM.CPLicense"
	ProgIDCSPInformation               = "X509Enrollment.CCspInformation"
	ProgIDCSPInformations              = "X509Enrollment.CCspInformations"
	ProgIDEnrollment                   = "X509Enrollment.CX509Enrollment"
	ProgIDPrivateKey                   = "X509Enrollment.CX509PrivateKey"
	ProgIDCertificateRequest           = "X509Enrollment.CX509CertificateRequestPkcs10"
	ProgIDDistinguishedName            = "X509Enrollment.CX500DistinguishedName"
	ProgIDExtension                    = "X509Enrollment.CX509Extension"
	ProgIDExtensionKeyUsage            = "X509Enrollment.CX509ExtensionKeyUsage"
	ProgIDExtensionEnhancedKeyUsage    = "X509Enrollment.CX509ExtensionEnhancedKeyUsage"
	ProgIDExtensionCertificatePolicies = "X509Enrollment.CX509ExtensionCertificatePolicies"
	ProgIDExtensionTemplate            = "X509Enrollment.CX509ExtensionTemplate"
	ProgIDExtensionIdentificationKind  = "X509Enrollment.CX509ExtensionIdentificationKind"
	ProgIDObjectID                     = "X509Enrollment.CObjectId"
	ProgIDObjectIDs                    = "X509Enrollment.CObjectIds"
	ProgIDCertificatePolicy            = "X509Enrollment.CCertificatePolicy"
	ProgIDCertificatePolicies          = "X509Enrollment.CCertificatePolicies"
	ProgIDPolicyQualifier              = "X509Enrollment.CPolicyQualifier"
	ProgIDNameValuePair                = "X509Enrollment.CX509NameValuePair"
)

// StoreLocation is a CAPICOM/CAdESCOM store location.
type StoreLocation int

const (
	StoreMemory       StoreLocation = 0
	StoreLocalMachine StoreLocation = 1
	StoreCurrentUser  StoreLocation = 2
	StoreSmartCard    StoreLocation = 4
	StoreContainer    StoreLocation = 100
)

// StoreMy is the personal certificate store name.
const StoreMy = "My"

// StoreOpenMode flags.
const (
	StoreOpenReadOnly        = 0
	StoreOpenReadWrite       = 1
	StoreOpenMaximumAllowed  = 2
	StoreOpenExistingOnly    = 128
	StoreOpenIncludeArchived = 256
)

// CertInfoType selects the field returned by Certificate.GetInfo.
type CertInfoType int

const (
	CertInfoSubjectSimpleName CertInfoType = 0
	CertInfoIssuerSimpleName  CertInfoType = 1
	CertInfoSubjectEmailName  CertInfoType = 2
	CertInfoIssuerEmailName   CertInfoType = 3
	CertInfoSubjectUPN        CertInfoType = 4
	CertInfoIssuerUPN         CertInfoType = 5
	CertInfoSubjectDNSName    CertInfoType = 6
	CertInfoIssuerDNSName     CertInfoType = 7
)

// Encoding and signing constants.
const (
	FindSHA1Hash             = 0
	EncodeBase64             = 0
	EncodeBinary             = 1
	Base64ToBinary           = 1
	CadesBES                 = 1
	CadesT                   = 5
	IncludeChainExceptRoot   = 0
	IncludeWholeChain        = 1
	IncludeEndEntityOnly     = 2
	HashGost3411_2012_256    = 101
	HashGost3411_2012_512    = 102
	ProductCSP               = 0
	ProductOCSP              = 1
	ProductTSP               = 2
	ContextUser              = 1
	AllowUntrustedRoot       = 0x4
	UseContainerStore        = 0x40000000
	CryptStringBase64        = 1
	CryptStringBase64Request = 3
	CryptStringBase64Any     = 6
	AllowExportFlag          = 1
	KeySpecKeyExchange       = 1
	PolicyQualifierUnknown   = 0
)

// XMLSignatureType selects how an XML signature is attached.
type XMLSignatureType int

const (
	XMLSignatureEnveloped  XMLSignatureType = 0
	XMLSignatureEnveloping XMLSignatureType = 1
	XMLSignatureTemplate   XMLSignatureType = 2
)

// XMLDSig algorithm URNs for GOST R 34.10/34.11-2012.
const (
	XMLDSigGost2012256Signature = "urn:ietf:params:xml:ns:cpxmlsec:algorithms:gostr34102012-gostr34112012-256"
	XMLDSigGost2012512Signature = "urn:ietf:params:xml:ns:cpxmlsec:algorithms:gostr34102012-gostr34112012-512"
	XMLDSigGost2012256Digest    = "urn:ietf:params:xml:ns:cpxmlsec:algorithms:gostr34112012-256"
	XMLDSigGost2012512Digest    = "urn:ietf:params:xml:ns:cpxmlsec:algorithms:gostr34112012-512"
)

// Certificate template extension version.
const (
	TemplateMajorVersion = 1
	TemplateMinorVersion = 0
)

// SignToolNameMaxLength keeps the subjectSignTool UTF8String within a
// single-byte DER length.
const SignToolNameMaxLength = 127
