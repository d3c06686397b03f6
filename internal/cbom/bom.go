// Package cbom parses CycloneDX cryptographic bills of materials and derives
// the application, service and crypto-asset inventory shown by the dashboard.
package cbom

// BOM is the subset of a CycloneDX document the dashboard reads.
type BOM struct {
	BOMFormat    string       `json:"bomFormat"`
	SpecVersion  string       `json:"specVersion"`
	SerialNumber string       `json:"serialNumber,omitempty"`
	Version      int          `json:"version,omitempty"`
	Metadata     Metadata     `json:"metadata"`
	Components   []Component  `json:"components,omitempty"`
	Services     []BOMService `json:"services,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

type Metadata struct {
	Timestamp  string     `json:"timestamp,omitempty"`
	Component  *Component `json:"component,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Component struct {
	Type             string            `json:"type"`
	BOMRef           string            `json:"bom-ref,omitempty"`
	Name             string            `json:"name"`
	Version          string            `json:"version,omitempty"`
	PURL             string            `json:"purl,omitempty"`
	Properties       []Property        `json:"properties,omitempty"`
	Evidence         *Evidence         `json:"evidence,omitempty"`
	CryptoProperties *CryptoProperties `json:"cryptoProperties,omitempty"`
}

type BOMService struct {
	BOMRef     string     `json:"bom-ref,omitempty"`
	Name       string     `json:"name"`
	Version    string     `json:"version,omitempty"`
	Endpoints  []string   `json:"endpoints,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

type Dependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

type Evidence struct {
	Occurrences []Occurrence `json:"occurrences,omitempty"`
}

type Occurrence struct {
	Location          string `json:"location"`
	Line              int    `json:"line,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Asset types carried in cryptoProperties.assetType.
const (
	AssetTypeAlgorithm             = "algorithm"
	AssetTypeProtocol              = "protocol"
	AssetTypeCertificate           = "certificate"
	AssetTypeRelatedCryptoMaterial = "related-crypto-material"
)

type CryptoProperties struct {
	AssetType                       string                           `json:"assetType"`
	OID                             string                           `json:"oid,omitempty"`
	AlgorithmProperties             *AlgorithmProperties             `json:"algorithmProperties,omitempty"`
	ProtocolProperties              *ProtocolProperties              `json:"protocolProperties,omitempty"`
	CertificateProperties           *CertificateProperties           `json:"certificateProperties,omitempty"`
	RelatedCryptoMaterialProperties *RelatedCryptoMaterialProperties `json:"relatedCryptoMaterialProperties,omitempty"`
}

type AlgorithmProperties struct {
	Primitive                string   `json:"primitive,omitempty"`
	ParameterSetIdentifier   string   `json:"parameterSetIdentifier,omitempty"`
	Curve                    string   `json:"curve,omitempty"`
	Mode                     string   `json:"mode,omitempty"`
	Padding                  string   `json:"padding,omitempty"`
	CryptoFunctions          []string `json:"cryptoFunctions,omitempty"`
	ClassicalSecurityLevel   int      `json:"classicalSecurityLevel,omitempty"`
	NISTQuantumSecurityLevel int      `json:"nistQuantumSecurityLevel,omitempty"`
}

type ProtocolProperties struct {
	Type         string        `json:"type,omitempty"`
	Version      string        `json:"version,omitempty"`
	CipherSuites []CipherSuite `json:"cipherSuites,omitempty"`
}

type CipherSuite struct {
	Name       string   `json:"name,omitempty"`
	Algorithms []string `json:"algorithms,omitempty"`
}

type CertificateProperties struct {
	SubjectName           string `json:"subjectName,omitempty"`
	IssuerName            string `json:"issuerName,omitempty"`
	NotValidBefore        string `json:"notValidBefore,omitempty"`
	NotValidAfter         string `json:"notValidAfter,omitempty"`
	SignatureAlgorithmRef string `json:"signatureAlgorithmRef,omitempty"`
	SubjectPublicKeyRef   string `json:"subjectPublicKeyRef,omitempty"`
	CertificateFormat     string `json:"certificateFormat,omitempty"`
}

type RelatedCryptoMaterialProperties struct {
	Type         string `json:"type,omitempty"`
	ID           string `json:"id,omitempty"`
	State        string `json:"state,omitempty"`
	AlgorithmRef string `json:"algorithmRef,omitempty"`
	Size         int    `json:"size,omitempty"`
	Format       string `json:"format,omitempty"`
}

func propertyValue(props []Property, name string) string {
	for _, p := range props {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}
