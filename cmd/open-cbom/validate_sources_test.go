package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-sspm/open-cbom/internal/config"
)

func writeTestCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datasources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateSources(t *testing.T) {
	t.Parallel()

	files := writeTestCatalog(t, "sources:\n  - {id: local, type: single, path: cbom.json}\n")
	if err := validateSources(config.Config{}, files); err != nil {
		t.Fatalf("validateSources() error = %v", err)
	}

	github := writeTestCatalog(t, "sources:\n  - {id: org, type: github, org: acme}\n")
	err := validateSources(config.Config{}, github)
	if err == nil || !strings.Contains(err.Error(), "org") {
		t.Fatalf("validateSources(github without token) error = %v", err)
	}
	if err := validateSources(config.Config{GitHubToken: "ghp_test"}, github); err != nil {
		t.Fatalf("validateSources(github with token) error = %v", err)
	}

	empty := writeTestCatalog(t, "sources: []\n")
	if err := validateSources(config.Config{}, empty); err == nil {
		t.Fatalf("expected an empty catalog to fail")
	}
}
