package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/open-sspm/open-cbom/internal/github"
	"github.com/open-sspm/open-cbom/internal/secrets"
	"golang.org/x/sync/errgroup"
)

const defaultFetchWorkers = 4

var ErrNoDocuments = errors.New("data source produced no documents")

// Fetcher downloads every document of one configured source.
type Fetcher interface {
	Fetch(ctx context.Context, src SourceConfig) ([]Document, error)
}

// FileFetcher reads single and multiple sources from the local filesystem.
// Relative paths resolve against BaseDir.
type FileFetcher struct {
	BaseDir string
	Workers int
	Now     func() time.Time
}

func (f *FileFetcher) Fetch(ctx context.Context, src SourceConfig) ([]Document, error) {
	var paths []string
	switch src.Type {
	case ConnectionSingle:
		paths = []string{f.resolve(src.Path)}
	case ConnectionMultiple:
		expanded, err := f.expand(src.Paths)
		if err != nil {
			return nil, err
		}
		paths = expanded
	default:
		return nil, fmt.Errorf("file fetcher cannot read %s sources", src.Type)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", ErrNoDocuments, strings.Join(src.Paths, ", "))
	}

	docs := make([]Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(f.Workers))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := NewDocument(src.ID, filepath.Base(path), raw, now(f.Now))
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (f *FileFetcher) resolve(path string) string {
	if filepath.IsAbs(path) || f.BaseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(f.BaseDir, path)
}

// expand resolves glob patterns to a sorted, de-duplicated list of regular
// files.
func (f *FileFetcher) expand(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(f.resolve(pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GitHubFetcher downloads the CBOM file from each repository of an
// organization.
type GitHubFetcher struct {
	BaseURL string
	Tokens  secrets.TokenResolver
	Workers int
	Now     func() time.Time
	Logger  *slog.Logger
}

func (f *GitHubFetcher) Fetch(ctx context.Context, src SourceConfig) ([]Document, error) {
	if src.Type != ConnectionGitHub {
		return nil, fmt.Errorf("github fetcher cannot read %s sources", src.Type)
	}
	token, err := f.Tokens.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	client, err := github.New(f.BaseURL, token)
	if err != nil {
		return nil, err
	}

	repos := src.Repos
	if len(repos) == 0 {
		listed, err := client.ListOrgRepos(ctx, src.Org)
		if err != nil {
			return nil, fmt.Errorf("list repositories of %s: %w", src.Org, err)
		}
		for _, r := range listed {
			if r.Archived || r.Disabled {
				continue
			}
			repos = append(repos, r.Name)
		}
		sort.Strings(repos)
	}

	path := src.GitHubFile()
	found := make([]*Document, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(f.Workers))
	for i, repo := range repos {
		g.Go(func() error {
			file, err := client.GetFileContent(gctx, src.Org, repo, path, src.Ref)
			if errors.Is(err, github.ErrFileNotFound) {
				f.logger().Debug("repository has no cbom file", "source", src.ID, "repo", repo, "path", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch %s/%s: %w", src.Org, repo, err)
			}
			doc, err := NewDocument(src.ID, file.Repository+":"+file.Path, file.Content, now(f.Now))
			if err != nil {
				return err
			}
			found[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []Document
	for _, d := range found {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no repository in %s contains %s", ErrNoDocuments, src.Org, path)
	}
	return docs, nil
}

func (f *GitHubFetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Router dispatches to the fetcher for a source's connection type.
type Router struct {
	Files  Fetcher
	GitHub Fetcher
}

func (r Router) Fetch(ctx context.Context, src SourceConfig) ([]Document, error) {
	var f Fetcher
	switch src.Type {
	case ConnectionSingle, ConnectionMultiple:
		f = r.Files
	case ConnectionGitHub:
		f = r.GitHub
	}
	if f == nil {
		return nil, fmt.Errorf("no fetcher configured for %s sources", src.Type)
	}
	return f.Fetch(ctx, src)
}

func workerCount(n int) int {
	if n < 1 {
		return defaultFetchWorkers
	}
	return n
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}
