package cbom

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ComponentType selects what a drill-down groups by.
type ComponentType string

const (
	ComponentLibraries ComponentType = "libraries"
	ComponentLanguages ComponentType = "languages"
)

var ErrInvalidComponentType = errors.New("invalid drill-down component type")

// ParseComponentType accepts "libraries" or "languages" (case-insensitive).
func ParseComponentType(raw string) (ComponentType, error) {
	switch ComponentType(strings.ToLower(strings.TrimSpace(raw))) {
	case ComponentLibraries:
		return ComponentLibraries, nil
	case ComponentLanguages:
		return ComponentLanguages, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidComponentType, raw)
	}
}

// ServiceRef identifies a service inside an application.
type ServiceRef struct {
	Application string `json:"application"`
	Service     string `json:"service"`
}

// DrillDownComponent is one library or language matched by a drill-down.
type DrillDownComponent struct {
	Name         string       `json:"name"`
	Language     string       `json:"language,omitempty"`
	Versions     []string     `json:"versions,omitempty"`
	Applications []string     `json:"applications"`
	Services     []ServiceRef `json:"services"`
}

// DrillDown is the secondary dataset produced by narrowing a search to one
// component type.
type DrillDown struct {
	Query             string               `json:"query"`
	ComponentType     ComponentType        `json:"componentType"`
	Components        []DrillDownComponent `json:"components"`
	TotalApplications int                  `json:"totalApplications"`
	TotalServices     int                  `json:"totalServices"`
}

// BuildDrillDown groups the services of inv by library or language, keeping
// the components whose name matches query. Totals count distinct
// applications and services across all matched components.
func BuildDrillDown(inv *Inventory, query string, componentType ComponentType) (DrillDown, error) {
	if componentType != ComponentLibraries && componentType != ComponentLanguages {
		return DrillDown{}, fmt.Errorf("%w: %q", ErrInvalidComponentType, componentType)
	}
	out := DrillDown{Query: strings.TrimSpace(query), ComponentType: componentType, Components: []DrillDownComponent{}}
	if inv == nil {
		return out, nil
	}

	m := newMatcher(query)
	type agg struct {
		component DrillDownComponent
		versions  map[string]struct{}
		apps      map[string]struct{}
		services  map[ServiceRef]struct{}
	}
	groups := make(map[string]*agg)
	var order []string
	add := func(name, lang, version string, svc Service) {
		key := foldKey(name)
		g, ok := groups[key]
		if !ok {
			g = &agg{
				component: DrillDownComponent{Name: name, Language: lang},
				versions:  map[string]struct{}{},
				apps:      map[string]struct{}{},
				services:  map[ServiceRef]struct{}{},
			}
			groups[key] = g
			order = append(order, key)
		}
		if version != "" {
			g.versions[version] = struct{}{}
		}
		if _, ok := g.apps[svc.Application]; !ok {
			g.apps[svc.Application] = struct{}{}
			g.component.Applications = append(g.component.Applications, svc.Application)
		}
		ref := ServiceRef{Application: svc.Application, Service: svc.Name}
		if _, ok := g.services[ref]; !ok {
			g.services[ref] = struct{}{}
			g.component.Services = append(g.component.Services, ref)
		}
	}

	for _, app := range inv.Applications {
		for _, svc := range app.Services {
			switch componentType {
			case ComponentLibraries:
				for _, lib := range svc.Libraries {
					if m.match(lib.Name, lib.PURL) {
						add(lib.Name, lib.Language, lib.Version, svc)
					}
				}
			case ComponentLanguages:
				if svc.Language != "" && m.match(svc.Language) {
					add(svc.Language, "", "", svc)
				}
			}
		}
	}

	col := newCollator()
	allApps := make(map[string]struct{})
	allServices := make(map[ServiceRef]struct{})
	for _, key := range order {
		g := groups[key]
		g.component.Versions = SortVersions(setKeys(g.versions))
		sortStrings(g.component.Applications)
		sort.SliceStable(g.component.Services, func(i, j int) bool {
			a, b := g.component.Services[i], g.component.Services[j]
			if c := col.CompareString(a.Application, b.Application); c != 0 {
				return c < 0
			}
			return col.CompareString(a.Service, b.Service) < 0
		})
		for app := range g.apps {
			allApps[app] = struct{}{}
		}
		for ref := range g.services {
			allServices[ref] = struct{}{}
		}
		out.Components = append(out.Components, g.component)
	}

	// Most widely used first.
	sort.SliceStable(out.Components, func(i, j int) bool {
		a, b := out.Components[i], out.Components[j]
		if len(a.Services) != len(b.Services) {
			return len(a.Services) > len(b.Services)
		}
		return col.CompareString(a.Name, b.Name) < 0
	})
	out.TotalApplications = len(allApps)
	out.TotalServices = len(allServices)
	return out, nil
}
