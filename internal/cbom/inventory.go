package cbom

import (
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Source is a parsed document together with where it came from.
type Source struct {
	Name string
	BOM  *BOM
}

type Library struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	PURL     string `json:"purl,omitempty"`
	Language string `json:"language,omitempty"`
}

type Algorithm struct {
	Name                     string        `json:"name"`
	Primitive                string        `json:"primitive,omitempty"`
	Mode                     string        `json:"mode,omitempty"`
	ParameterSet             string        `json:"parameterSet,omitempty"`
	ClassicalSecurityLevel   int           `json:"classicalSecurityLevel,omitempty"`
	NISTQuantumSecurityLevel int           `json:"nistQuantumSecurityLevel,omitempty"`
	Quantum                  QuantumStatus `json:"quantum"`
	Occurrences              int           `json:"occurrences"`
}

type Protocol struct {
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Version      string   `json:"version,omitempty"`
	CipherSuites []string `json:"cipherSuites,omitempty"`
}

type Service struct {
	Name        string      `json:"name"`
	Application string      `json:"application"`
	Endpoints   []string    `json:"endpoints,omitempty"`
	Language    string      `json:"language,omitempty"`
	Libraries   []Library   `json:"libraries"`
	Algorithms  []Algorithm `json:"algorithms"`
	Protocols   []Protocol  `json:"protocols"`
}

type Application struct {
	Name     string    `json:"name"`
	Version  string    `json:"version,omitempty"`
	Sources  []string  `json:"sources,omitempty"`
	Services []Service `json:"services"`
}

// Service returns the named service of the application.
func (a Application) Service(name string) (Service, bool) {
	for _, svc := range a.Services {
		if strings.EqualFold(svc.Name, name) {
			return svc, true
		}
	}
	return Service{}, false
}

// Languages returns the distinct service languages of the application.
func (a Application) Languages() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, svc := range a.Services {
		if svc.Language == "" {
			continue
		}
		if _, ok := seen[svc.Language]; ok {
			continue
		}
		seen[svc.Language] = struct{}{}
		out = append(out, svc.Language)
	}
	sortStrings(out)
	return out
}

type LibraryUsage struct {
	Name             string   `json:"name"`
	Language         string   `json:"language,omitempty"`
	Versions         []string `json:"versions"`
	LatestVersion    string   `json:"latestVersion,omitempty"`
	Applications     int      `json:"applications"`
	Services         int      `json:"services"`
	OutdatedServices int      `json:"outdatedServices"`
}

type AlgorithmUsage struct {
	Name         string        `json:"name"`
	Primitive    string        `json:"primitive,omitempty"`
	Quantum      QuantumStatus `json:"quantum"`
	Applications int           `json:"applications"`
	Services     int           `json:"services"`
	Occurrences  int           `json:"occurrences"`
}

type ProtocolUsage struct {
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Versions     []string `json:"versions,omitempty"`
	Applications int      `json:"applications"`
	Services     int      `json:"services"`
}

type LanguageUsage struct {
	Name         string `json:"name"`
	Applications int    `json:"applications"`
	Services     int    `json:"services"`
	Libraries    int    `json:"libraries"`
}

type Summary struct {
	Applications      int `json:"applications"`
	Services          int `json:"services"`
	Libraries         int `json:"libraries"`
	Algorithms        int `json:"algorithms"`
	Protocols         int `json:"protocols"`
	Languages         int `json:"languages"`
	QuantumVulnerable int `json:"quantumVulnerable"`
}

// Inventory is the CBOM dataset rendered in cbom search mode.
type Inventory struct {
	Applications []Application    `json:"applications"`
	Libraries    []LibraryUsage   `json:"libraries"`
	Algorithms   []AlgorithmUsage `json:"algorithms"`
	Protocols    []ProtocolUsage  `json:"protocols"`
	Languages    []LanguageUsage  `json:"languages"`
	Summary      Summary          `json:"summary"`
}

// Application looks an application up by name.
func (inv *Inventory) Application(name string) (Application, bool) {
	if inv == nil {
		return Application{}, false
	}
	for _, app := range inv.Applications {
		if strings.EqualFold(app.Name, name) {
			return app, true
		}
	}
	return Application{}, false
}

// Build extracts applications from every source and aggregates them.
// Applications with the same name in several sources are merged.
func Build(sources []Source) *Inventory {
	var apps []Application
	index := make(map[string]int)
	for _, src := range sources {
		if src.BOM == nil {
			continue
		}
		app, _, _ := extract(src)
		key := foldKey(app.Name)
		if i, ok := index[key]; ok {
			apps[i].Services = mergeServices(apps[i].Services, app.Services)
			apps[i].Sources = append(apps[i].Sources, app.Sources...)
			continue
		}
		index[key] = len(apps)
		apps = append(apps, app)
	}
	return aggregate(apps)
}

// mergeServices folds services into dst. A service whose name matches one
// already in dst is combined with it so names stay unique per application.
func mergeServices(dst, services []Service) []Service {
	for _, svc := range services {
		i := slices.IndexFunc(dst, func(existing Service) bool { return strings.EqualFold(existing.Name, svc.Name) })
		if i < 0 {
			dst = append(dst, svc)
			continue
		}
		merged := &dst[i]
		for _, ep := range svc.Endpoints {
			if !slices.Contains(merged.Endpoints, ep) {
				merged.Endpoints = append(merged.Endpoints, ep)
			}
		}
		merged.Language = firstNonEmpty(merged.Language, svc.Language)
		for _, lib := range svc.Libraries {
			if !slices.ContainsFunc(merged.Libraries, func(l Library) bool {
				return strings.EqualFold(l.Name, lib.Name) && l.Version == lib.Version
			}) {
				merged.Libraries = append(merged.Libraries, lib)
			}
		}
		for _, alg := range svc.Algorithms {
			j := slices.IndexFunc(merged.Algorithms, func(a Algorithm) bool { return strings.EqualFold(a.Name, alg.Name) })
			if j < 0 {
				merged.Algorithms = append(merged.Algorithms, alg)
				continue
			}
			merged.Algorithms[j].Occurrences += alg.Occurrences
		}
		for _, proto := range svc.Protocols {
			if !slices.ContainsFunc(merged.Protocols, func(p Protocol) bool { return strings.EqualFold(p.Name, proto.Name) }) {
				merged.Protocols = append(merged.Protocols, proto)
			}
		}
	}
	return dst
}

// aggregate derives every usage table and the summary from apps.
func aggregate(apps []Application) *Inventory {
	col := newCollator()
	sort.SliceStable(apps, func(i, j int) bool { return col.CompareString(apps[i].Name, apps[j].Name) < 0 })

	type libAgg struct {
		usage       LibraryUsage
		versions    map[string]struct{}
		apps        map[string]struct{}
		services    int
		svcVersions []string
	}
	type algAgg struct {
		usage AlgorithmUsage
		apps  map[string]struct{}
	}
	type protoAgg struct {
		usage    ProtocolUsage
		versions map[string]struct{}
		apps     map[string]struct{}
	}
	type langAgg struct {
		usage LanguageUsage
		apps  map[string]struct{}
		libs  map[string]struct{}
	}

	libs := make(map[string]*libAgg)
	algs := make(map[string]*algAgg)
	protos := make(map[string]*protoAgg)
	langs := make(map[string]*langAgg)
	var libOrder, algOrder, protoOrder, langOrder []string

	inv := &Inventory{Applications: apps}
	for _, app := range apps {
		appKey := foldKey(app.Name)
		for _, svc := range app.Services {
			inv.Summary.Services++

			if svc.Language != "" {
				key := foldKey(svc.Language)
				agg, ok := langs[key]
				if !ok {
					agg = &langAgg{usage: LanguageUsage{Name: svc.Language}, apps: map[string]struct{}{}, libs: map[string]struct{}{}}
					langs[key] = agg
					langOrder = append(langOrder, key)
				}
				agg.apps[appKey] = struct{}{}
				agg.usage.Services++
				for _, lib := range svc.Libraries {
					agg.libs[foldKey(lib.Name)] = struct{}{}
				}
			}

			for _, lib := range svc.Libraries {
				key := foldKey(lib.Name)
				agg, ok := libs[key]
				if !ok {
					agg = &libAgg{usage: LibraryUsage{Name: lib.Name, Language: lib.Language}, versions: map[string]struct{}{}, apps: map[string]struct{}{}}
					libs[key] = agg
					libOrder = append(libOrder, key)
				}
				if lib.Version != "" {
					agg.versions[lib.Version] = struct{}{}
				}
				agg.apps[appKey] = struct{}{}
				agg.services++
				agg.svcVersions = append(agg.svcVersions, lib.Version)
			}

			for _, alg := range svc.Algorithms {
				key := foldKey(alg.Name)
				agg, ok := algs[key]
				if !ok {
					agg = &algAgg{usage: AlgorithmUsage{Name: alg.Name, Primitive: alg.Primitive, Quantum: alg.Quantum}, apps: map[string]struct{}{}}
					algs[key] = agg
					algOrder = append(algOrder, key)
				}
				agg.apps[appKey] = struct{}{}
				agg.usage.Services++
				agg.usage.Occurrences += alg.Occurrences
			}

			for _, proto := range svc.Protocols {
				key := foldKey(proto.Name)
				agg, ok := protos[key]
				if !ok {
					agg = &protoAgg{usage: ProtocolUsage{Name: proto.Name, Type: proto.Type}, versions: map[string]struct{}{}, apps: map[string]struct{}{}}
					protos[key] = agg
					protoOrder = append(protoOrder, key)
				}
				if proto.Version != "" {
					agg.versions[proto.Version] = struct{}{}
				}
				agg.apps[appKey] = struct{}{}
				agg.usage.Services++
			}
		}
	}

	for _, key := range libOrder {
		agg := libs[key]
		agg.usage.Versions = SortVersions(setKeys(agg.versions))
		agg.usage.LatestVersion = LatestVersion(agg.usage.Versions)
		agg.usage.Applications = len(agg.apps)
		agg.usage.Services = agg.services
		for _, v := range agg.svcVersions {
			if v != "" && agg.usage.LatestVersion != "" && v != agg.usage.LatestVersion {
				agg.usage.OutdatedServices++
			}
		}
		inv.Libraries = append(inv.Libraries, agg.usage)
	}
	for _, key := range algOrder {
		agg := algs[key]
		agg.usage.Applications = len(agg.apps)
		if agg.usage.Quantum == QuantumVulnerable {
			inv.Summary.QuantumVulnerable++
		}
		inv.Algorithms = append(inv.Algorithms, agg.usage)
	}
	for _, key := range protoOrder {
		agg := protos[key]
		agg.usage.Versions = SortVersions(setKeys(agg.versions))
		agg.usage.Applications = len(agg.apps)
		inv.Protocols = append(inv.Protocols, agg.usage)
	}
	for _, key := range langOrder {
		agg := langs[key]
		agg.usage.Applications = len(agg.apps)
		agg.usage.Libraries = len(agg.libs)
		inv.Languages = append(inv.Languages, agg.usage)
	}

	sort.SliceStable(inv.Libraries, func(i, j int) bool {
		return col.CompareString(inv.Libraries[i].Name, inv.Libraries[j].Name) < 0
	})
	sort.SliceStable(inv.Algorithms, func(i, j int) bool {
		return col.CompareString(inv.Algorithms[i].Name, inv.Algorithms[j].Name) < 0
	})
	sort.SliceStable(inv.Protocols, func(i, j int) bool {
		return col.CompareString(inv.Protocols[i].Name, inv.Protocols[j].Name) < 0
	})
	sort.SliceStable(inv.Languages, func(i, j int) bool {
		return col.CompareString(inv.Languages[i].Name, inv.Languages[j].Name) < 0
	})

	inv.Summary.Applications = len(inv.Applications)
	inv.Summary.Libraries = len(inv.Libraries)
	inv.Summary.Algorithms = len(inv.Algorithms)
	inv.Summary.Protocols = len(inv.Protocols)
	inv.Summary.Languages = len(inv.Languages)
	return inv
}

// extract turns one BOM into an application plus the crypto materials it
// declares.
func extract(src Source) (Application, []Certificate, []Material) {
	bom := src.BOM
	app := Application{Name: strings.TrimSpace(src.Name)}
	appLanguage := ""
	if c := bom.Metadata.Component; c != nil {
		if name := strings.TrimSpace(c.Name); name != "" {
			app.Name = name
		}
		app.Version = strings.TrimSpace(c.Version)
		appLanguage = propertyValue(c.Properties, languagePropertyName)
	}
	if app.Name == "" {
		app.Name = "unnamed application"
	}
	if src.Name != "" {
		app.Sources = []string{src.Name}
	}

	byRef := make(map[string]Component, len(bom.Components))
	for _, c := range bom.Components {
		if c.BOMRef != "" {
			byRef[c.BOMRef] = c
		}
	}
	deps := make(map[string][]string, len(bom.Dependencies))
	for _, d := range bom.Dependencies {
		deps[d.Ref] = append(deps[d.Ref], d.DependsOn...)
	}

	var certs []Certificate
	var materials []Material
	collect := func(svcName string, components []Component) Service {
		svc := Service{Name: svcName, Application: app.Name}
		for _, c := range components {
			switch {
			case c.CryptoProperties != nil:
				switch strings.ToLower(strings.TrimSpace(c.CryptoProperties.AssetType)) {
				case AssetTypeAlgorithm:
					svc.Algorithms = appendAlgorithm(svc.Algorithms, c)
				case AssetTypeProtocol:
					svc.Protocols = appendProtocol(svc.Protocols, c)
				case AssetTypeCertificate:
					certs = append(certs, certificateFrom(c, app.Name, svcName, byRef))
				case AssetTypeRelatedCryptoMaterial:
					materials = append(materials, materialFrom(c, app.Name, svcName, byRef))
				}
			case isLibraryType(c.Type):
				svc.Libraries = appendLibrary(svc.Libraries, c)
			}
		}
		return svc
	}

	if len(bom.Services) == 0 {
		svc := collect(app.Name, bom.Components)
		svc.Language = firstNonEmpty(appLanguage, dominantLanguage(svc.Libraries))
		app.Services = []Service{svc}
		return app, certs, materials
	}

	reached := make(map[string]struct{})
	for _, bs := range bom.Services {
		refs := reachable(bs.BOMRef, deps)
		components := make([]Component, 0, len(refs))
		for _, ref := range refs {
			if c, ok := byRef[ref]; ok {
				components = append(components, c)
				reached[ref] = struct{}{}
			}
		}
		name := strings.TrimSpace(bs.Name)
		if name == "" {
			name = bs.BOMRef
		}
		svc := collect(name, components)
		svc.Endpoints = append([]string(nil), bs.Endpoints...)
		svc.Language = firstNonEmpty(propertyValue(bs.Properties, languagePropertyName), appLanguage, dominantLanguage(svc.Libraries))
		app.Services = append(app.Services, svc)
	}

	var unreached []Component
	for _, c := range bom.Components {
		if _, ok := reached[c.BOMRef]; ok && c.BOMRef != "" {
			continue
		}
		unreached = append(unreached, c)
	}
	if len(unreached) > 0 {
		svc := collect(app.Name, unreached)
		if len(svc.Libraries)+len(svc.Algorithms)+len(svc.Protocols) > 0 {
			svc.Language = firstNonEmpty(appLanguage, dominantLanguage(svc.Libraries))
			app.Services = append(app.Services, svc)
		}
	}
	return app, certs, materials
}

// reachable walks dependsOn edges from root, excluding root itself.
func reachable(root string, deps map[string][]string) []string {
	if root == "" {
		return nil
	}
	seen := map[string]struct{}{root: {}}
	var out []string
	stack := append([]string(nil), deps[root]...)
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
		stack = append(stack, deps[ref]...)
	}
	return out
}

func isLibraryType(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "library", "framework":
		return true
	default:
		return false
	}
}

func appendLibrary(libs []Library, c Component) []Library {
	name := strings.TrimSpace(c.Name)
	version := strings.TrimSpace(c.Version)
	for _, existing := range libs {
		if strings.EqualFold(existing.Name, name) && existing.Version == version {
			return libs
		}
	}
	return append(libs, Library{
		Name:     name,
		Version:  version,
		PURL:     strings.TrimSpace(c.PURL),
		Language: firstNonEmpty(propertyValue(c.Properties, languagePropertyName), languageFromPURL(c.PURL)),
	})
}

func appendAlgorithm(algs []Algorithm, c Component) []Algorithm {
	name := strings.TrimSpace(c.Name)
	occurrences := 1
	if c.Evidence != nil && len(c.Evidence.Occurrences) > 0 {
		occurrences = len(c.Evidence.Occurrences)
	}
	for i := range algs {
		if strings.EqualFold(algs[i].Name, name) {
			algs[i].Occurrences += occurrences
			return algs
		}
	}
	alg := Algorithm{Name: name, Occurrences: occurrences}
	if p := c.CryptoProperties.AlgorithmProperties; p != nil {
		alg.Primitive = p.Primitive
		alg.Mode = p.Mode
		alg.ParameterSet = p.ParameterSetIdentifier
		alg.ClassicalSecurityLevel = p.ClassicalSecurityLevel
		alg.NISTQuantumSecurityLevel = p.NISTQuantumSecurityLevel
	}
	alg.Quantum = ClassifyAlgorithm(alg.Name, alg.Primitive, alg.ParameterSet, alg.NISTQuantumSecurityLevel)
	return append(algs, alg)
}

func appendProtocol(protos []Protocol, c Component) []Protocol {
	name := strings.TrimSpace(c.Name)
	for _, existing := range protos {
		if strings.EqualFold(existing.Name, name) {
			return protos
		}
	}
	proto := Protocol{Name: name}
	if p := c.CryptoProperties.ProtocolProperties; p != nil {
		proto.Type = p.Type
		proto.Version = p.Version
		for _, suite := range p.CipherSuites {
			if s := strings.TrimSpace(suite.Name); s != "" {
				proto.CipherSuites = append(proto.CipherSuites, s)
			}
		}
	}
	return append(protos, proto)
}

// dominantLanguage returns the most common library language, ties broken
// alphabetically.
func dominantLanguage(libs []Library) string {
	counts := make(map[string]int)
	for _, lib := range libs {
		if lib.Language != "" {
			counts[lib.Language]++
		}
	}
	best, bestCount := "", 0
	for lang, n := range counts {
		if n > bestCount || (n == bestCount && lang < best) {
			best, bestCount = lang, n
		}
	}
	return best
}

// SortVersions orders versions ascending. Semantic versions sort by
// precedence after any non-semantic strings, which sort lexically.
func SortVersions(versions []string) []string {
	out := append([]string(nil), versions...)
	sort.SliceStable(out, func(i, j int) bool { return versionLess(out[i], out[j]) })
	return out
}

// LatestVersion returns the highest version of a SortVersions result.
func LatestVersion(sorted []string) string {
	if len(sorted) == 0 {
		return ""
	}
	return sorted[len(sorted)-1]
}

func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if va.Equal(vb) {
			return a < b
		}
		return va.LessThan(vb)
	case errA == nil:
		return false
	case errB == nil:
		return true
	default:
		return a < b
	}
}

func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase, collate.Numeric)
}

func sortStrings(values []string) {
	newCollator().SortStrings(values)
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
