package cbom

import (
	"sort"
	"strings"
	"time"
)

// ExpiringWindow is how far ahead a certificate counts as expiring.
const ExpiringWindow = 30 * 24 * time.Hour

type ExpiryState string

const (
	ExpiryValid    ExpiryState = "valid"
	ExpiryExpiring ExpiryState = "expiring"
	ExpiryExpired  ExpiryState = "expired"
	ExpiryUnknown  ExpiryState = "unknown"
)

type Certificate struct {
	Name               string      `json:"name"`
	Subject            string      `json:"subject,omitempty"`
	Issuer             string      `json:"issuer,omitempty"`
	NotBefore          time.Time   `json:"notBefore,omitzero"`
	NotAfter           time.Time   `json:"notAfter,omitzero"`
	SignatureAlgorithm string      `json:"signatureAlgorithm,omitempty"`
	Format             string      `json:"format,omitempty"`
	Expiry             ExpiryState `json:"expiry"`
	Application        string      `json:"application"`
	Service            string      `json:"service"`
}

// Material is a key, secret or other related crypto material.
type Material struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Size        int    `json:"size,omitempty"`
	Algorithm   string `json:"algorithm,omitempty"`
	State       string `json:"state,omitempty"`
	Format      string `json:"format,omitempty"`
	Application string `json:"application"`
	Service     string `json:"service"`
}

type MaterialsSummary struct {
	Certificates int `json:"certificates"`
	Expired      int `json:"expired"`
	Expiring     int `json:"expiring"`
	Materials    int `json:"materials"`
	PrivateKeys  int `json:"privateKeys"`
	Secrets      int `json:"secrets"`
	Applications int `json:"applications"`
}

// MaterialsInventory is the dataset rendered in crypto-materials search mode.
type MaterialsInventory struct {
	Certificates []Certificate    `json:"certificates"`
	Materials    []Material       `json:"materials"`
	Summary      MaterialsSummary `json:"summary"`
}

// BuildMaterials extracts certificates and related crypto materials from
// every source. now decides certificate expiry.
func BuildMaterials(sources []Source, now time.Time) *MaterialsInventory {
	var certs []Certificate
	var materials []Material
	for _, src := range sources {
		if src.BOM == nil {
			continue
		}
		_, c, m := extract(src)
		certs = append(certs, c...)
		materials = append(materials, m...)
	}
	for i := range certs {
		certs[i].Expiry = expiryState(certs[i].NotAfter, now)
	}
	return summarizeMaterials(certs, materials)
}

func summarizeMaterials(certs []Certificate, materials []Material) *MaterialsInventory {
	col := newCollator()
	sort.SliceStable(certs, func(i, j int) bool {
		if !certs[i].NotAfter.Equal(certs[j].NotAfter) {
			if certs[i].NotAfter.IsZero() || certs[j].NotAfter.IsZero() {
				return !certs[i].NotAfter.IsZero()
			}
			return certs[i].NotAfter.Before(certs[j].NotAfter)
		}
		return col.CompareString(certs[i].Name, certs[j].Name) < 0
	})
	sort.SliceStable(materials, func(i, j int) bool {
		return col.CompareString(materials[i].Name, materials[j].Name) < 0
	})

	inv := &MaterialsInventory{Certificates: certs, Materials: materials}
	apps := make(map[string]struct{})
	for _, cert := range certs {
		apps[foldKey(cert.Application)] = struct{}{}
		switch cert.Expiry {
		case ExpiryExpired:
			inv.Summary.Expired++
		case ExpiryExpiring:
			inv.Summary.Expiring++
		}
	}
	for _, m := range materials {
		apps[foldKey(m.Application)] = struct{}{}
		switch strings.ToLower(m.Type) {
		case "private-key":
			inv.Summary.PrivateKeys++
		case "secret-key", "shared-secret", "password", "token", "credential":
			inv.Summary.Secrets++
		}
	}
	inv.Summary.Certificates = len(certs)
	inv.Summary.Materials = len(materials)
	inv.Summary.Applications = len(apps)
	return inv
}

func expiryState(notAfter, now time.Time) ExpiryState {
	switch {
	case notAfter.IsZero():
		return ExpiryUnknown
	case !now.Before(notAfter):
		return ExpiryExpired
	case notAfter.Sub(now) <= ExpiringWindow:
		return ExpiryExpiring
	default:
		return ExpiryValid
	}
}

func certificateFrom(c Component, app, svc string, byRef map[string]Component) Certificate {
	cert := Certificate{Name: strings.TrimSpace(c.Name), Application: app, Service: svc}
	p := c.CryptoProperties.CertificateProperties
	if p == nil {
		return cert
	}
	cert.Subject = strings.TrimSpace(p.SubjectName)
	cert.Issuer = strings.TrimSpace(p.IssuerName)
	cert.NotBefore = parseTimestamp(p.NotValidBefore)
	cert.NotAfter = parseTimestamp(p.NotValidAfter)
	cert.Format = strings.TrimSpace(p.CertificateFormat)
	cert.SignatureAlgorithm = refName(p.SignatureAlgorithmRef, byRef)
	return cert
}

func materialFrom(c Component, app, svc string, byRef map[string]Component) Material {
	m := Material{Name: strings.TrimSpace(c.Name), Application: app, Service: svc}
	p := c.CryptoProperties.RelatedCryptoMaterialProperties
	if p == nil {
		return m
	}
	m.Type = strings.TrimSpace(p.Type)
	m.Size = p.Size
	m.State = strings.TrimSpace(p.State)
	m.Format = strings.TrimSpace(p.Format)
	m.Algorithm = refName(p.AlgorithmRef, byRef)
	return m
}

// refName resolves a bom-ref to the referenced component name, falling back
// to the ref itself.
func refName(ref string, byRef map[string]Component) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if c, ok := byRef[ref]; ok && strings.TrimSpace(c.Name) != "" {
		return strings.TrimSpace(c.Name)
	}
	return ref
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
