package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 120 * time.Second
const maxRetries = 3

const maxRetryAfter = 30 * time.Second

// maxFileSize caps downloaded repository files.
const maxFileSize = 64 << 20

// ErrFileNotFound is returned when a repository does not contain the requested file.
var ErrFileNotFound = errors.New("github file not found")

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

type Repository struct {
	ID            int64
	Name          string
	FullName      string
	Owner         string
	Private       bool
	Archived      bool
	Disabled      bool
	DefaultBranch string
	PushedAtRaw   string
}

// File is a downloaded repository file.
type File struct {
	Repository string
	Path       string
	Ref        string
	Content    []byte
}

// New creates a new GitHub client. It validates that both baseURL and token are provided.
func New(baseURL, token string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	token = strings.TrimSpace(token)

	if base == "" {
		return nil, errors.New("github base URL is required")
	}
	if token == "" {
		return nil, errors.New("github token is required")
	}

	return &Client{
		BaseURL: base,
		Token:   token,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (c *Client) httpClient() (*http.Client, error) {
	if c.BaseURL == "" || c.Token == "" {
		return nil, errors.New("github base URL and token are required")
	}
	if c.HTTP == nil {
		return &http.Client{Timeout: defaultTimeout}, nil
	}
	if c.HTTP.Timeout > 0 {
		return c.HTTP, nil
	}
	copy := *c.HTTP
	copy.Timeout = defaultTimeout
	return &copy, nil
}

type repoPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
	Disabled      bool   `json:"disabled"`
	DefaultBranch string `json:"default_branch"`
	PushedAtRaw   string `json:"pushed_at"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (p repoPayload) repository() Repository {
	return Repository{
		ID:            p.ID,
		Name:          p.Name,
		FullName:      p.FullName,
		Owner:         p.Owner.Login,
		Private:       p.Private,
		Archived:      p.Archived,
		Disabled:      p.Disabled,
		DefaultBranch: p.DefaultBranch,
		PushedAtRaw:   p.PushedAtRaw,
	}
}

// ListOrgRepos lists every repository of org, following Link pagination.
func (c *Client) ListOrgRepos(ctx context.Context, org string) ([]Repository, error) {
	pageURL := fmt.Sprintf("%s/orgs/%s/repos?per_page=100&type=all", c.BaseURL, url.PathEscape(strings.TrimSpace(org)))
	var out []Repository
	for pageURL != "" {
		rawItems, next, err := c.getRawPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, raw := range rawItems {
			var repo repoPayload
			if err := json.Unmarshal(raw, &repo); err != nil {
				return nil, err
			}
			out = append(out, repo.repository())
		}
		pageURL = next
	}
	return out, nil
}

// GetFileContent downloads path from owner/repo at ref. An empty ref reads
// the default branch. A missing file returns ErrFileNotFound.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (File, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return File{}, errors.New("github file path is required")
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.BaseURL, url.PathEscape(owner), url.PathEscape(repo), strings.Join(segments, "/"))
	if ref = strings.TrimSpace(ref); ref != "" {
		reqURL += "?ref=" + url.QueryEscape(ref)
	}

	resp, err := c.doRequest(ctx, reqURL, "application/vnd.github.raw+json")
	if err != nil {
		return File{}, err
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return File{}, fmt.Errorf("%w: %s/%s/%s", ErrFileNotFound, owner, repo, path)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return File{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return File{}, formatGitHubAPIError("github file download failed", reqURL, resp, body)
	}
	if len(body) > maxFileSize {
		return File{}, fmt.Errorf("github file %s/%s/%s exceeds %d bytes", owner, repo, path, maxFileSize)
	}
	return File{Repository: owner + "/" + repo, Path: path, Ref: ref, Content: body}, nil
}

func (c *Client) getRawPage(ctx context.Context, reqURL string) ([]json.RawMessage, string, error) {
	resp, err := c.doRequest(ctx, reqURL, "application/vnd.github+json")
	if err != nil {
		return nil, "", err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", formatGitHubAPIError("github api failed", reqURL, resp, body)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, "", err
	}
	return items, parseNextLink(resp.Header.Get("Link")), nil
}

func (c *Client) doRequest(ctx context.Context, reqURL, accept string) (*http.Response, error) {
	httpClient, err := c.httpClient()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		req.Header.Set("User-Agent", "open-cbom")

		resp, err := httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries && shouldRetryError(ctx, err) {
				if err := sleepWithContext(ctx, backoffDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if attempt < maxRetries && shouldRetryStatus(resp) {
			drainAndClose(resp.Body)
			if err := sleepWithContext(ctx, retryDelay(resp, attempt)); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
	return nil, errors.New("github request failed after retries")
}

func formatGitHubAPIError(prefix, reqURL string, resp *http.Response, body []byte) error {
	message := extractGitHubAPIErrorMessage(body)
	details := formatGitHubAPIErrorDetails(reqURL, resp)

	if message != "" && details != "" {
		return fmt.Errorf("%s: %s: %s (%s)", prefix, resp.Status, message, details)
	}
	if message != "" {
		return fmt.Errorf("%s: %s: %s", prefix, resp.Status, message)
	}
	if details != "" {
		return fmt.Errorf("%s: %s (%s)", prefix, resp.Status, details)
	}
	return fmt.Errorf("%s: %s", prefix, resp.Status)
}

func extractGitHubAPIErrorMessage(body []byte) string {
	var payload struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		if payload.DocumentationURL != "" {
			return fmt.Sprintf("%s (docs: %s)", payload.Message, payload.DocumentationURL)
		}
		return payload.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return ""
	}
	// Base URLs pointing at a web frontend return HTML pages.
	if strings.HasPrefix(msg, "<!DOCTYPE html") || strings.HasPrefix(msg, "<html") {
		return ""
	}

	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "..."
	}
	return msg
}

func formatGitHubAPIErrorDetails(reqURL string, resp *http.Response) string {
	var parts []string

	if v := safeGitHubURL(reqURL); v != "" {
		parts = append(parts, "url="+v)
	}
	for _, h := range []struct{ header, key string }{
		{"X-GitHub-Request-Id", "request_id"},
		{"X-GitHub-SSO", "github_sso"},
		{"X-Accepted-GitHub-Permissions", "accepted_permissions"},
		{"X-RateLimit-Remaining", "rate_remaining"},
		{"X-RateLimit-Reset", "rate_reset"},
		{"Retry-After", "retry_after"},
	} {
		if v := resp.Header.Get(h.header); v != "" {
			parts = append(parts, h.key+"="+v)
		}
	}

	return strings.Join(parts, ", ")
}

func safeGitHubURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery != "" {
		return u.Scheme + "://" + u.Host + u.Path + "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host + u.Path
}

func parseNextLink(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	for part := range strings.SplitSeq(linkHeader, ",") {
		if !strings.Contains(part, "rel=\"next\"") {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return strings.TrimSpace(part[start+1 : end])
		}
	}
	return ""
}

func shouldRetryStatus(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func shouldRetryError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func retryDelay(resp *http.Response, attempt int) time.Duration {
	if resp == nil {
		return backoffDelay(attempt)
	}
	if d := retryAfter(resp); d > 0 {
		return d
	}
	return backoffDelay(attempt)
}

func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return min(time.Duration(secs)*time.Second, maxRetryAfter)
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return min(d, maxRetryAfter)
	}
	return 0
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	d := 200 * time.Millisecond
	for range attempt {
		d *= 2
		if d >= 5*time.Second {
			return 5 * time.Second
		}
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drainAndClose(r io.ReadCloser) {
	if r == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 1<<20))
	_ = r.Close()
}
