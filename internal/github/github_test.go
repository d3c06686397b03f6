package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewSetsHTTPTimeout(t *testing.T) {
	t.Parallel()

	c, err := New("https://api.github.com", "token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.HTTP == nil {
		t.Fatalf("expected HTTP client to be set")
	}
	if c.HTTP.Timeout <= 0 {
		t.Fatalf("expected non-zero HTTP timeout")
	}
}

func TestNewRequiresBaseURLAndToken(t *testing.T) {
	t.Parallel()

	if _, err := New("", "token"); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
	if _, err := New("https://api.github.com", "  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestClientTimesOutOnSlowServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.HTTP.Timeout = 50 * time.Millisecond

	_, err = c.ListOrgRepos(context.Background(), "acme")
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected timeout error, got %T: %v", err, err)
	}
}

func TestClientRetriesOn429(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
			return
		}
		if r.URL.Path != "/orgs/acme/repos" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repos, err := c.ListOrgRepos(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListOrgRepos: %v", err)
	}
	if len(repos) != 0 {
		t.Fatalf("expected 0 repos, got %d", len(repos))
	}
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Fatalf("expected retries, got %d calls", got)
	}
}

func TestListOrgReposFollowsLinkPagination(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_, _ = fmt.Fprint(w, `[{"id":2,"name":"ledger","full_name":"acme/ledger","owner":{"login":"acme"},"default_branch":"main"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/acme/repos?page=2>; rel="next", <%s/orgs/acme/repos?page=2>; rel="last"`, srv.URL, srv.URL))
		_, _ = fmt.Fprint(w, `[{"id":1,"name":"payments","full_name":"acme/payments","owner":{"login":"acme"},"archived":true}]`)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	repos, err := c.ListOrgRepos(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListOrgRepos: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(repos))
	}
	if repos[0].Name != "payments" || !repos[0].Archived || repos[0].Owner != "acme" {
		t.Fatalf("unexpected first repo: %+v", repos[0])
	}
	if repos[1].FullName != "acme/ledger" || repos[1].DefaultBranch != "main" {
		t.Fatalf("unexpected second repo: %+v", repos[1])
	}
}

func TestGetFileContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/repos/acme/payments/contents/security/cbom.json":
			if got := r.URL.Query().Get("ref"); got != "release" {
				t.Errorf("ref = %q", got)
			}
			_, _ = w.Write([]byte(`{"bomFormat":"CycloneDX"}`))
		case "/repos/acme/private/contents/cbom.json":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Resource not accessible by integration"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	file, err := c.GetFileContent(context.Background(), "acme", "payments", "/security/cbom.json", "release")
	if err != nil {
		t.Fatalf("GetFileContent: %v", err)
	}
	if string(file.Content) != `{"bomFormat":"CycloneDX"}` || file.Repository != "acme/payments" || file.Path != "security/cbom.json" {
		t.Fatalf("unexpected file: %+v", file)
	}

	_, err = c.GetFileContent(context.Background(), "acme", "ledger", "cbom.json", "")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	_, err = c.GetFileContent(context.Background(), "acme", "private", "cbom.json", "")
	if err == nil || errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestParseNextLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: `<https://api.github.com/x?page=3>; rel="next"`, want: "https://api.github.com/x?page=3"},
		{header: `<https://api.github.com/x?page=1>; rel="prev", <https://api.github.com/x?page=3>; rel="next"`, want: "https://api.github.com/x?page=3"},
		{header: `<https://api.github.com/x?page=1>; rel="first"`, want: ""},
	}
	for _, tt := range tests {
		if got := parseNextLink(tt.header); got != tt.want {
			t.Fatalf("parseNextLink(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestRetryAfterIsCapped(t *testing.T) {
	t.Parallel()

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "600")
	if got := retryAfter(resp); got != maxRetryAfter {
		t.Fatalf("retryAfter = %s, want %s", got, maxRetryAfter)
	}
	if got := backoffDelay(10); got != 5*time.Second {
		t.Fatalf("backoffDelay(10) = %s, want 5s", got)
	}
}
