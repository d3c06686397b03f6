// Package secrets resolves credentials the data-source fetchers need.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// StringReader reads one string value from a secret store.
type StringReader interface {
	ReadString(ctx context.Context, path, key string) (string, error)
}

// Reference points at a value in a secret store, written as "path" or
// "path#key".
type Reference struct {
	Path string
	Key  string
}

func ParseReference(raw string) Reference {
	raw = strings.TrimSpace(raw)
	path, key, _ := strings.Cut(raw, "#")
	return Reference{Path: strings.TrimSpace(path), Key: strings.TrimSpace(key)}
}

func (r Reference) IsZero() bool {
	return r.Path == ""
}

func (r Reference) String() string {
	if r.Key == "" {
		return r.Path
	}
	return r.Path + "#" + r.Key
}

// ErrNoToken is returned when neither a static token nor a secret reference
// is configured.
var ErrNoToken = errors.New("no github token configured")

// TokenResolver returns the GitHub token, preferring the static value.
type TokenResolver struct {
	Static    string
	Reader    StringReader
	Reference Reference
}

func (r TokenResolver) Configured() bool {
	return strings.TrimSpace(r.Static) != "" || (r.Reader != nil && !r.Reference.IsZero())
}

func (r TokenResolver) Resolve(ctx context.Context) (string, error) {
	if token := strings.TrimSpace(r.Static); token != "" {
		return token, nil
	}
	if r.Reader == nil || r.Reference.IsZero() {
		return "", ErrNoToken
	}
	token, err := r.Reader.ReadString(ctx, r.Reference.Path, r.Reference.Key)
	if err != nil {
		return "", fmt.Errorf("resolve github token from %s: %w", r.Reference, err)
	}
	return token, nil
}
