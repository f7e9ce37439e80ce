package cadeskit

// Public-key algorithm OIDs of GOST R 34.10-2012.
const (
	OIDGost2012256 = "1.2.643.7.1.1.1.1"
	OIDGost2012512 = "1.2.643.7.1.1.1.2"
)

// OIDSubjectKeyID is the Subject Key Identifier extension.
const OIDSubjectKeyID = "2.5.29.14"

// OIDSubjectSignTool is the subjectSignTool extension carried by
// qualified certificate requests.
const OIDSubjectSignTool = "1.2.643.100.111"

// IsGOSTAlgorithm reports whether oid is one of the two approved GOST
// public-key algorithms.
func IsGOSTAlgorithm(oid string) bool {
	return oid == OIDGost2012256 || oid == OIDGost2012512
}

// Attribute names the subject and issuer fields the decoder extracts. The
// string values match the short names printed by the host in SubjectName.
type Attribute string

const (
	AttrCommonName   Attribute = "CN"
	AttrSurname      Attribute = "SN"
	AttrGivenName    Attribute = "G"
	AttrCountry      Attribute = "C"
	AttrRegion       Attribute = "S"
	AttrLocality     Attribute = "L"
	AttrStreet       Attribute = "STREET"
	AttrOrganization Attribute = "O"
	AttrDepartment   Attribute = "OU"
	AttrPost         Attribute = "T"
	AttrOGRNIP       Attribute = "OGRNIP"
	AttrOGRN         Attribute = "OGRN"
	AttrSNILS        Attribute = "SNILS"
	AttrINNLE        Attribute = "INNLE"
	AttrINN          Attribute = "INN"
	AttrEmail        Attribute = "E"
)

// attributeOIDs lists every recognized attribute with its OID, in the order
// they are reported.
var attributeOIDs = []struct {
	name Attribute
	oid  string
}{
	{AttrCommonName, "2.5.4.3"},
	{AttrSurname, "2.5.4.4"},
	{AttrGivenName, "2.5.4.42"},
	{AttrCountry, "2.5.4.6"},
	{AttrRegion, "2.5.4.8"},
	{AttrLocality, "2.5.4.7"},
	{AttrStreet, "2.5.4.9"},
	{AttrOrganization, "2.5.4.10"},
	{AttrDepartment, "2.5.4.11"},
	{AttrPost, "2.5.4.12"},
	{AttrOGRNIP, "1.2.643.100.5"},
	{AttrOGRN, "1.2.643.100.1"},
	{AttrSNILS, "1.2.643.100.3"},
	{AttrINNLE, "1.2.643.100.4"},
	{AttrINN, "1.2.643.3.131.1.1"},
	{AttrEmail, "1.2.840.113549.1.9.1"},
}

// AttributeOID returns the OID of a recognized attribute.
func AttributeOID(a Attribute) (string, bool) {
	for _, ao := range attributeOIDs {
		if ao.name == a {
			return ao.oid, true
		}
	}
	return "", false
}

// Attributes maps recognized attribute names to their first value. Absent
// attributes have no entry.
type Attributes map[Attribute]string

// Get returns the value of a, or "" when absent.
func (a Attributes) Get(name Attribute) string {
	return a[name]
}

// Lookup returns the value of a and whether it is present.
func (a Attributes) Lookup(name Attribute) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Names returns the present attribute names in reporting order.
func (a Attributes) Names() []Attribute {
	var names []Attribute
	for _, ao := range attributeOIDs {
		if _, ok := a[ao.name]; ok {
			names = append(names, ao.name)
		}
	}
	return names
}
