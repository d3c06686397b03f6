package cbom

import (
	"strings"

	"golang.org/x/text/cases"
)

func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// matcher does case-folded substring matching against a fixed query.
type matcher struct {
	query string
}

func newMatcher(query string) matcher {
	return matcher{query: foldKey(query)}
}

func (m matcher) empty() bool {
	return m.query == ""
}

func (m matcher) match(values ...string) bool {
	if m.query == "" {
		return true
	}
	for _, v := range values {
		if v != "" && strings.Contains(foldKey(v), m.query) {
			return true
		}
	}
	return false
}

func (m matcher) matchService(svc Service) bool {
	if m.match(svc.Name, svc.Language) {
		return true
	}
	for _, lib := range svc.Libraries {
		if m.match(lib.Name, lib.PURL) {
			return true
		}
	}
	for _, alg := range svc.Algorithms {
		if m.match(alg.Name, alg.Primitive) {
			return true
		}
	}
	for _, proto := range svc.Protocols {
		if m.match(proto.Name, proto.Type) {
			return true
		}
	}
	return false
}

// Search narrows the inventory to what matches query. An application whose
// name matches is kept whole; otherwise only its matching services are kept.
// An empty query returns inv unchanged.
func Search(inv *Inventory, query string) *Inventory {
	if inv == nil {
		return aggregate(nil)
	}
	m := newMatcher(query)
	if m.empty() {
		return inv
	}
	var apps []Application
	for _, app := range inv.Applications {
		if m.match(app.Name) {
			apps = append(apps, app)
			continue
		}
		var services []Service
		for _, svc := range app.Services {
			if m.matchService(svc) {
				services = append(services, svc)
			}
		}
		if len(services) > 0 {
			narrowed := app
			narrowed.Services = services
			apps = append(apps, narrowed)
		}
	}
	return aggregate(apps)
}

// SearchMaterials narrows certificates and materials to those matching
// query by name, subject, issuer, type, algorithm, application or service.
func SearchMaterials(inv *MaterialsInventory, query string) *MaterialsInventory {
	if inv == nil {
		return summarizeMaterials(nil, nil)
	}
	m := newMatcher(query)
	if m.empty() {
		return inv
	}
	var certs []Certificate
	for _, c := range inv.Certificates {
		if m.match(c.Name, c.Subject, c.Issuer, c.SignatureAlgorithm, c.Application, c.Service) {
			certs = append(certs, c)
		}
	}
	var materials []Material
	for _, mat := range inv.Materials {
		if m.match(mat.Name, mat.Type, mat.Algorithm, mat.Application, mat.Service) {
			materials = append(materials, mat)
		}
	}
	return summarizeMaterials(certs, materials)
}

// Filter narrows an inventory by dropdown selections. Zero fields do not
// filter.
type Filter struct {
	Language string
	Quantum  QuantumStatus
}

func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Language) == "" && f.Quantum == ""
}

// Apply keeps services written in f.Language that use at least one algorithm
// with status f.Quantum.
func (f Filter) Apply(inv *Inventory) *Inventory {
	if inv == nil || f.IsZero() {
		return inv
	}
	lang := foldKey(f.Language)
	var apps []Application
	for _, app := range inv.Applications {
		var services []Service
		for _, svc := range app.Services {
			if lang != "" && foldKey(svc.Language) != lang {
				continue
			}
			if f.Quantum != "" && !usesQuantumStatus(svc, f.Quantum) {
				continue
			}
			services = append(services, svc)
		}
		if len(services) > 0 {
			narrowed := app
			narrowed.Services = services
			apps = append(apps, narrowed)
		}
	}
	return aggregate(apps)
}

func usesQuantumStatus(svc Service, status QuantumStatus) bool {
	for _, alg := range svc.Algorithms {
		if alg.Quantum == status {
			return true
		}
	}
	return false
}

// FilterOption is one entry of a filter dropdown.
type FilterOption struct {
	Value string
	Label string
	Count int
}

// LanguageOptions lists the languages present in inv for the language
// dropdown, sorted by name.
func LanguageOptions(inv *Inventory) []FilterOption {
	if inv == nil {
		return nil
	}
	out := make([]FilterOption, 0, len(inv.Languages))
	for _, l := range inv.Languages {
		out = append(out, FilterOption{Value: l.Name, Label: l.Name, Count: l.Services})
	}
	return out
}

// QuantumOptions lists quantum statuses that occur in inv, in severity order.
func QuantumOptions(inv *Inventory) []FilterOption {
	if inv == nil {
		return nil
	}
	counts := make(map[QuantumStatus]int)
	for _, alg := range inv.Algorithms {
		counts[alg.Quantum]++
	}
	var out []FilterOption
	for _, status := range []QuantumStatus{QuantumVulnerable, QuantumWeakened, QuantumSafe, QuantumUnknown} {
		if n := counts[status]; n > 0 {
			out = append(out, FilterOption{Value: string(status), Label: quantumLabel(status), Count: n})
		}
	}
	return out
}

func quantumLabel(status QuantumStatus) string {
	switch status {
	case QuantumVulnerable:
		return "Quantum vulnerable"
	case QuantumWeakened:
		return "Weakened by quantum"
	case QuantumSafe:
		return "Quantum safe"
	default:
		return "Unclassified"
	}
}
