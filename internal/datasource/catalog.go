package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid data source catalog")

const defaultGitHubFile = "cbom.json"

var sourceIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// SourceConfig is one entry of the data source catalog file.
type SourceConfig struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Type   ConnectionType `yaml:"type"`
	Format string         `yaml:"format,omitempty"`

	// single
	Path string `yaml:"path,omitempty"`
	// multiple: glob patterns
	Paths []string `yaml:"paths,omitempty"`

	// github
	Org   string   `yaml:"org,omitempty"`
	Repos []string `yaml:"repos,omitempty"`
	File  string   `yaml:"file,omitempty"`
	Ref   string   `yaml:"ref,omitempty"`
}

// Descriptor returns the initial descriptor for a configured source.
func (c SourceConfig) Descriptor() Descriptor {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = c.ID
	}
	return Descriptor{
		ID:             c.ID,
		Name:           name,
		ConnectionType: c.Type,
		Format:         strings.TrimSpace(c.Format),
		Status:         StatusActive,
	}
}

// GitHubFile returns the repository path to fetch, defaulting to cbom.json.
func (c SourceConfig) GitHubFile() string {
	if f := strings.Trim(strings.TrimSpace(c.File), "/"); f != "" {
		return f
	}
	return defaultGitHubFile
}

type Catalog struct {
	Sources []SourceConfig `yaml:"sources"`
}

// Source returns the configured source with the given id.
func (c Catalog) Source(id string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return SourceConfig{}, false
}

func (c Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.Sources))
	for _, src := range c.Sources {
		out = append(out, src.Descriptor())
	}
	return out
}

// LoadCatalog reads and validates the catalog at path.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read data source catalog: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	for i := range cat.Sources {
		cat.Sources[i] = cat.Sources[i].normalized()
	}
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

func (c SourceConfig) normalized() SourceConfig {
	out := c
	out.ID = strings.ToLower(strings.TrimSpace(out.ID))
	out.Name = strings.TrimSpace(out.Name)
	out.Type = ConnectionType(strings.ToLower(strings.TrimSpace(string(out.Type))))
	out.Path = strings.TrimSpace(out.Path)
	out.Org = strings.TrimSpace(out.Org)
	out.Ref = strings.TrimSpace(out.Ref)
	out.Paths = trimAll(out.Paths)
	out.Repos = trimAll(out.Repos)
	return out
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports every problem in the catalog at once.
func (c Catalog) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		label := fmt.Sprintf("sources[%d]", i)
		if src.ID != "" {
			label = fmt.Sprintf("source %q", src.ID)
		}
		if !sourceIDPattern.MatchString(src.ID) {
			errs = append(errs, fmt.Errorf("%s: id must match %s", label, sourceIDPattern))
		}
		if _, dup := seen[src.ID]; dup && src.ID != "" {
			errs = append(errs, fmt.Errorf("%s: duplicate id", label))
		}
		seen[src.ID] = struct{}{}

		switch src.Type {
		case ConnectionSingle:
			if src.Path == "" {
				errs = append(errs, fmt.Errorf("%s: path is required for single sources", label))
			}
		case ConnectionMultiple:
			if len(src.Paths) == 0 {
				errs = append(errs, fmt.Errorf("%s: paths is required for multiple sources", label))
			}
		case ConnectionGitHub:
			if src.Org == "" {
				errs = append(errs, fmt.Errorf("%s: org is required for github sources", label))
			}
			for _, repo := range src.Repos {
				if strings.Contains(repo, "/") {
					errs = append(errs, fmt.Errorf("%s: repo %q must not include the owner", label, repo))
				}
			}
		default:
			errs = append(errs, fmt.Errorf("%s: type %q must be one of single, multiple, github", label, src.Type))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
}
