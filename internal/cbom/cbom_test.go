package cbom

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paymentsBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.6",
  "metadata": {"component": {"type": "application", "name": "payments", "version": "2.1.0"}},
  "services": [
    {"bom-ref": "svc-api", "name": "payments-api", "endpoints": ["https://pay.example.com"]},
    {"bom-ref": "svc-worker", "name": "settlement-worker", "properties": [{"name": "cbom:language", "value": "Go"}]}
  ],
  "components": [
    {"type": "library", "bom-ref": "lib-bc", "name": "bouncycastle", "version": "1.70", "purl": "pkg:maven/org.bouncycastle/bcprov@1.70"},
    {"type": "library", "bom-ref": "lib-bc-new", "name": "bouncycastle", "version": "1.78", "purl": "pkg:maven/org.bouncycastle/bcprov@1.78"},
    {"type": "cryptographic-asset", "bom-ref": "alg-rsa", "name": "RSA-2048",
     "cryptoProperties": {"assetType": "algorithm", "algorithmProperties": {"primitive": "pke"}},
     "evidence": {"occurrences": [{"location": "a.java"}, {"location": "b.java"}]}},
    {"type": "cryptographic-asset", "bom-ref": "alg-aes", "name": "AES-256-GCM",
     "cryptoProperties": {"assetType": "algorithm", "algorithmProperties": {"primitive": "ae", "mode": "gcm"}}},
    {"type": "cryptographic-asset", "bom-ref": "proto-tls", "name": "TLS",
     "cryptoProperties": {"assetType": "protocol", "protocolProperties": {"type": "tls", "version": "1.3",
       "cipherSuites": [{"name": "TLS_AES_256_GCM_SHA384"}]}}},
    {"type": "cryptographic-asset", "bom-ref": "cert-api", "name": "pay.example.com",
     "cryptoProperties": {"assetType": "certificate", "certificateProperties": {
       "subjectName": "CN=pay.example.com", "issuerName": "CN=Example CA",
       "notValidAfter": "2026-01-10T00:00:00Z", "signatureAlgorithmRef": "alg-rsa"}}},
    {"type": "cryptographic-asset", "bom-ref": "key-api", "name": "api-signing-key",
     "cryptoProperties": {"assetType": "related-crypto-material", "relatedCryptoMaterialProperties": {
       "type": "private-key", "size": 2048, "algorithmRef": "alg-rsa"}}},
    {"type": "library", "bom-ref": "lib-orphan", "name": "golang.org/x/crypto", "version": "v0.30.0", "purl": "pkg:golang/golang.org/x/crypto@v0.30.0"}
  ],
  "dependencies": [
    {"ref": "svc-api", "dependsOn": ["lib-bc", "proto-tls", "cert-api", "key-api"]},
    {"ref": "lib-bc", "dependsOn": ["alg-rsa", "alg-aes"]},
    {"ref": "svc-worker", "dependsOn": ["lib-bc-new", "alg-aes"]}
  ]
}`

const ledgerBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "metadata": {"component": {"type": "application", "name": "ledger"}},
  "components": [
    {"type": "library", "bom-ref": "lib-bc", "name": "BouncyCastle", "version": "1.78", "purl": "pkg:maven/org.bouncycastle/bcprov@1.78"},
    {"type": "cryptographic-asset", "bom-ref": "alg-mlkem", "name": "ML-KEM-768",
     "cryptoProperties": {"assetType": "algorithm", "algorithmProperties": {"primitive": "kem", "nistQuantumSecurityLevel": 3}}}
  ]
}`

func mustParse(t *testing.T, raw string) *BOM {
	t.Helper()
	bom, err := Parse([]byte(raw))
	require.NoError(t, err)
	return bom
}

func testSources(t *testing.T) []Source {
	t.Helper()
	return []Source{
		{Name: "payments.cdx.json", BOM: mustParse(t, paymentsBOM)},
		{Name: "ledger.cdx.json", BOM: mustParse(t, ledgerBOM)},
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "  "},
		{name: "not json", raw: "{"},
		{name: "wrong format", raw: `{"bomFormat":"SPDX","specVersion":"1.6"}`},
		{name: "old spec", raw: `{"bomFormat":"CycloneDX","specVersion":"1.3"}`},
		{name: "bad spec version", raw: `{"bomFormat":"CycloneDX","specVersion":"latest"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument))
		})
	}
}

func TestParseFormatTag(t *testing.T) {
	bom := mustParse(t, paymentsBOM)
	assert.Equal(t, "cyclonedx-1.6", bom.FormatTag())
}

func TestClassifyAlgorithm(t *testing.T) {
	tests := []struct {
		name      string
		primitive string
		params    string
		level     int
		want      QuantumStatus
	}{
		{name: "RSA-2048", want: QuantumVulnerable},
		{name: "ECDSA-P256", want: QuantumVulnerable},
		{name: "X25519", want: QuantumVulnerable},
		{name: "ML-KEM-768", want: QuantumSafe},
		{name: "AES-128-GCM", want: QuantumWeakened},
		{name: "AES-256-GCM", want: QuantumSafe},
		{name: "AES", params: "256", want: QuantumSafe},
		{name: "SHA-256", want: QuantumWeakened},
		{name: "SHA-512", want: QuantumSafe},
		{name: "MD5", want: QuantumVulnerable},
		{name: "custom-kem", primitive: "kem", level: 3, want: QuantumSafe},
		{name: "mystery", want: QuantumUnknown},
		{name: "", want: QuantumUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAlgorithm(tt.name, tt.primitive, tt.params, tt.level))
		})
	}
}

func TestBuildResolvesServicesThroughDependencies(t *testing.T) {
	inv := Build(testSources(t))

	require.Len(t, inv.Applications, 2)
	assert.Equal(t, "ledger", inv.Applications[0].Name)
	assert.Equal(t, "payments", inv.Applications[1].Name)

	payments, ok := inv.Application("PAYMENTS")
	require.True(t, ok)
	assert.Equal(t, "2.1.0", payments.Version)
	assert.Equal(t, []string{"payments.cdx.json"}, payments.Sources)
	require.Len(t, payments.Services, 3)

	api, ok := payments.Service("payments-api")
	require.True(t, ok)
	assert.Equal(t, []string{"https://pay.example.com"}, api.Endpoints)
	assert.Equal(t, "Java", api.Language)
	require.Len(t, api.Libraries, 1)
	assert.Equal(t, "1.70", api.Libraries[0].Version)
	require.Len(t, api.Algorithms, 2)
	require.Len(t, api.Protocols, 1)
	assert.Equal(t, []string{"TLS_AES_256_GCM_SHA384"}, api.Protocols[0].CipherSuites)

	worker, ok := payments.Service("settlement-worker")
	require.True(t, ok)
	assert.Equal(t, "Go", worker.Language)
	require.Len(t, worker.Algorithms, 1)
	assert.Equal(t, QuantumSafe, worker.Algorithms[0].Quantum)

	// Components no service depends on land in a service named after the application.
	rest, ok := payments.Service("payments")
	require.True(t, ok)
	require.Len(t, rest.Libraries, 1)
	assert.Equal(t, "golang.org/x/crypto", rest.Libraries[0].Name)
	assert.Equal(t, "Go", rest.Language)
}

func TestBuildWithoutServicesUsesApplicationAsService(t *testing.T) {
	inv := Build([]Source{{Name: "ledger.cdx.json", BOM: mustParse(t, ledgerBOM)}})
	require.Len(t, inv.Applications, 1)
	require.Len(t, inv.Applications[0].Services, 1)
	svc := inv.Applications[0].Services[0]
	assert.Equal(t, "ledger", svc.Name)
	assert.Equal(t, "ledger", svc.Application)
	assert.Equal(t, "Java", svc.Language)
}

func TestBuildAggregatesUsage(t *testing.T) {
	inv := Build(testSources(t))

	assert.Equal(t, Summary{
		Applications:      2,
		Services:          4,
		Libraries:         2,
		Algorithms:        3,
		Protocols:         1,
		Languages:         2,
		QuantumVulnerable: 1,
	}, inv.Summary)

	var bc LibraryUsage
	for _, lib := range inv.Libraries {
		if strings.EqualFold(lib.Name, "bouncycastle") {
			bc = lib
		}
	}
	assert.Equal(t, []string{"1.70", "1.78"}, bc.Versions)
	assert.Equal(t, "1.78", bc.LatestVersion)
	assert.Equal(t, 2, bc.Applications)
	assert.Equal(t, 3, bc.Services)
	assert.Equal(t, 1, bc.OutdatedServices)

	var rsa AlgorithmUsage
	for _, alg := range inv.Algorithms {
		if alg.Name == "RSA-2048" {
			rsa = alg
		}
	}
	assert.Equal(t, QuantumVulnerable, rsa.Quantum)
	assert.Equal(t, 2, rsa.Occurrences)

	require.Len(t, inv.Languages, 2)
	assert.Equal(t, "Go", inv.Languages[0].Name)
	assert.Equal(t, "Java", inv.Languages[1].Name)
	assert.Equal(t, 2, inv.Languages[1].Applications)
}

func TestBuildMergesApplicationsAcrossSources(t *testing.T) {
	bom := mustParse(t, ledgerBOM)
	inv := Build([]Source{{Name: "a.json", BOM: bom}, {Name: "b.json", BOM: bom}, {Name: "nil.json"}})
	require.Len(t, inv.Applications, 1)
	assert.Equal(t, []string{"a.json", "b.json"}, inv.Applications[0].Sources)
	require.Len(t, inv.Applications[0].Services, 1)
	assert.Len(t, inv.Applications[0].Services[0].Libraries, 1)
	assert.Equal(t, 2, inv.Applications[0].Services[0].Algorithms[0].Occurrences)
}

func TestBuildMergesSameNamedServices(t *testing.T) {
	other := mustParse(t, `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.6",
  "metadata": {"component": {"type": "application", "name": "Ledger"}},
  "components": [
    {"type": "library", "bom-ref": "lib-sodium", "name": "libsodium", "version": "1.0.19"}
  ]
}`)
	inv := Build([]Source{{Name: "a.json", BOM: mustParse(t, ledgerBOM)}, {Name: "b.json", BOM: other}})
	require.Len(t, inv.Applications, 1)
	app := inv.Applications[0]

	names := make(map[string]struct{})
	for _, svc := range app.Services {
		key := strings.ToLower(svc.Name)
		_, dup := names[key]
		assert.False(t, dup, "duplicate service %q", svc.Name)
		names[key] = struct{}{}
	}

	svc, ok := app.Service("ledger")
	require.True(t, ok)
	var libs []string
	for _, lib := range svc.Libraries {
		libs = append(libs, lib.Name)
	}
	assert.ElementsMatch(t, []string{"BouncyCastle", "libsodium"}, libs)

	dd, err := BuildDrillDown(inv, "", ComponentLibraries)
	require.NoError(t, err)
	assert.Equal(t, inv.Summary.Services, dd.TotalServices)
	assert.Equal(t, 1, inv.Summary.Services)
}

func TestSortVersions(t *testing.T) {
	got := SortVersions([]string{"1.10.0", "v1.2.0", "snapshot", "1.9.3"})
	assert.Equal(t, []string{"snapshot", "v1.2.0", "1.9.3", "1.10.0"}, got)
	assert.Equal(t, "1.10.0", LatestVersion(got))
	assert.Equal(t, "", LatestVersion(nil))
}

func TestSearch(t *testing.T) {
	inv := Build(testSources(t))

	assert.Same(t, inv, Search(inv, "  "))

	byApp := Search(inv, "LEDGER")
	require.Len(t, byApp.Applications, 1)
	assert.Equal(t, "ledger", byApp.Applications[0].Name)

	byAlg := Search(inv, "rsa")
	require.Len(t, byAlg.Applications, 1)
	require.Len(t, byAlg.Applications[0].Services, 1)
	assert.Equal(t, "payments-api", byAlg.Applications[0].Services[0].Name)
	assert.Equal(t, 1, byAlg.Summary.Services)

	assert.Empty(t, Search(inv, "no-such-thing").Applications)
	assert.NotNil(t, Search(nil, "x"))
}

func TestFilterApply(t *testing.T) {
	inv := Build(testSources(t))

	assert.Same(t, inv, Filter{}.Apply(inv))

	goOnly := Filter{Language: "go"}.Apply(inv)
	assert.Equal(t, 2, goOnly.Summary.Services)

	vulnerable := Filter{Quantum: QuantumVulnerable}.Apply(inv)
	require.Len(t, vulnerable.Applications, 1)
	assert.Equal(t, "payments", vulnerable.Applications[0].Name)
	assert.Equal(t, 1, vulnerable.Summary.Services)

	both := Filter{Language: "Go", Quantum: QuantumVulnerable}.Apply(inv)
	assert.Empty(t, both.Applications)
}

func TestFilterOptions(t *testing.T) {
	inv := Build(testSources(t))

	langs := LanguageOptions(inv)
	require.Len(t, langs, 2)
	assert.Equal(t, "Go", langs[0].Value)

	quantum := QuantumOptions(inv)
	require.Len(t, quantum, 2)
	assert.Equal(t, string(QuantumVulnerable), quantum[0].Value)
	assert.Equal(t, string(QuantumSafe), quantum[1].Value)
	assert.Equal(t, 2, quantum[1].Count)
}

func TestBuildDrillDownLibraries(t *testing.T) {
	inv := Build(testSources(t))

	dd, err := BuildDrillDown(inv, "bouncy", ComponentLibraries)
	require.NoError(t, err)
	require.Len(t, dd.Components, 1)
	c := dd.Components[0]
	assert.Equal(t, "BouncyCastle", c.Name, "first application in name order names the component")
	assert.Equal(t, []string{"1.70", "1.78"}, c.Versions)
	assert.Equal(t, []string{"ledger", "payments"}, c.Applications)
	assert.Len(t, c.Services, 3)
	assert.Equal(t, 2, dd.TotalApplications)
	assert.Equal(t, 3, dd.TotalServices)
}

func TestBuildDrillDownLanguages(t *testing.T) {
	inv := Build(testSources(t))

	dd, err := BuildDrillDown(inv, "", ComponentLanguages)
	require.NoError(t, err)
	require.Len(t, dd.Components, 2)
	assert.Equal(t, "Go", dd.Components[0].Name)
	assert.Equal(t, "Java", dd.Components[1].Name)
	assert.Equal(t, 4, dd.TotalServices)
	assert.Equal(t, 2, dd.TotalApplications)
}

func TestBuildDrillDownRejectsUnknownComponentType(t *testing.T) {
	_, err := BuildDrillDown(nil, "x", ComponentType("algorithms"))
	assert.ErrorIs(t, err, ErrInvalidComponentType)

	_, err = ParseComponentType("frameworks")
	assert.ErrorIs(t, err, ErrInvalidComponentType)

	got, err := ParseComponentType(" Languages ")
	require.NoError(t, err)
	assert.Equal(t, ComponentLanguages, got)
}

func TestBuildMaterials(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mats := BuildMaterials(testSources(t), now)

	require.Len(t, mats.Certificates, 1)
	cert := mats.Certificates[0]
	assert.Equal(t, "CN=pay.example.com", cert.Subject)
	assert.Equal(t, "RSA-2048", cert.SignatureAlgorithm)
	assert.Equal(t, ExpiryExpiring, cert.Expiry)
	assert.Equal(t, "payments-api", cert.Service)

	require.Len(t, mats.Materials, 1)
	assert.Equal(t, "RSA-2048", mats.Materials[0].Algorithm)
	assert.Equal(t, 2048, mats.Materials[0].Size)

	assert.Equal(t, MaterialsSummary{Certificates: 1, Expiring: 1, Materials: 1, PrivateKeys: 1, Applications: 1}, mats.Summary)

	later := BuildMaterials(testSources(t), now.AddDate(1, 0, 0))
	assert.Equal(t, ExpiryExpired, later.Certificates[0].Expiry)
	assert.Equal(t, 1, later.Summary.Expired)
}

func TestSearchMaterials(t *testing.T) {
	mats := BuildMaterials(testSources(t), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Same(t, mats, SearchMaterials(mats, ""))

	got := SearchMaterials(mats, "example ca")
	assert.Len(t, got.Certificates, 1)
	assert.Empty(t, got.Materials)

	got = SearchMaterials(mats, "private-key")
	assert.Empty(t, got.Certificates)
	assert.Len(t, got.Materials, 1)
}

func TestBuildGraph(t *testing.T) {
	g := BuildGraph(Build(testSources(t)))

	assert.True(t, g.HasNode(ApplicationNodeID("payments")))
	assert.True(t, g.HasNode(ServiceNodeID("payments", "payments-api")))
	assert.True(t, g.HasNode("lib:bouncycastle"))
	assert.Contains(t, g.Edges, Edge{From: ApplicationNodeID("ledger"), To: ServiceNodeID("ledger", "ledger")})

	// Shared assets are one node.
	count := 0
	for _, n := range g.Nodes {
		if n.ID == "alg:aes-256-gcm" {
			count++
			assert.Equal(t, QuantumSafe, n.Risk)
		}
	}
	assert.Equal(t, 1, count)

	assert.Empty(t, BuildGraph(nil).Nodes)
}
