package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/open-sspm/open-cbom/internal/secrets"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMetricsAddr     = ":9090"
	// DefaultPageSize and MaxPageSize also bound the per_page query parameter.
	DefaultPageSize        = 10
	MaxPageSize            = 100
	defaultDataSourcesFile = "datasources.yaml"
	defaultSyncInterval    = 15 * time.Minute
	defaultSyncWorkers     = 4
	defaultGitHubAPIURL    = "https://api.github.com"
	defaultSessionLifetime = 12 * time.Hour
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

type Config struct {
	DatabaseURL      string
	HTTPAddr         string
	MetricsAddr      string
	PageSize         int
	DataSourcesFile  string
	SyncInterval     time.Duration
	SyncWorkers      int
	GitHubAPIURL     string
	GitHubToken      string
	AuthCookieSecure bool
	AuthDisabled     bool
	SessionLifetime  time.Duration

	VaultAddr            string
	VaultNamespace       string
	VaultAuthType        string
	VaultToken           string
	VaultAppRoleMount    string
	VaultAppRoleRoleID   string
	VaultAppRoleSecretID string
	VaultGitHubTokenPath string
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:      getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		PageSize:         getenvIntDefault("PAGE_SIZE", DefaultPageSize),
		DataSourcesFile:  getenvDefault("DATASOURCES_FILE", defaultDataSourcesFile),
		SyncInterval:     getenvDurationDefault("SYNC_INTERVAL", defaultSyncInterval),
		SyncWorkers:      getenvIntDefault("SYNC_WORKERS", defaultSyncWorkers),
		GitHubAPIURL:     strings.TrimRight(getenvDefault("GITHUB_API_URL", defaultGitHubAPIURL), "/"),
		GitHubToken:      strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		AuthCookieSecure: getenvBoolDefault("AUTH_COOKIE_SECURE", false),
		AuthDisabled:     getenvBoolDefault("AUTH_DISABLED", false),
		SessionLifetime:  getenvDurationDefault("SESSION_LIFETIME", defaultSessionLifetime),

		VaultAddr:            strings.TrimSpace(os.Getenv("VAULT_ADDR")),
		VaultNamespace:       strings.TrimSpace(os.Getenv("VAULT_NAMESPACE")),
		VaultAuthType:        getenvDefault("VAULT_AUTH_TYPE", secrets.AuthTypeToken),
		VaultToken:           strings.TrimSpace(os.Getenv("VAULT_TOKEN")),
		VaultAppRoleMount:    strings.TrimSpace(os.Getenv("VAULT_APPROLE_MOUNT")),
		VaultAppRoleRoleID:   strings.TrimSpace(os.Getenv("VAULT_APPROLE_ROLE_ID")),
		VaultAppRoleSecretID: strings.TrimSpace(os.Getenv("VAULT_APPROLE_SECRET_ID")),
		VaultGitHubTokenPath: strings.TrimSpace(os.Getenv("VAULT_GITHUB_TOKEN_PATH")),
	}
	if cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("%w: DATABASE_URL is required", ErrInvalidConfiguration)
	}
	if cfg.VaultGitHubTokenPath != "" && cfg.VaultAddr == "" {
		return cfg, fmt.Errorf("%w: VAULT_GITHUB_TOKEN_PATH requires VAULT_ADDR", ErrInvalidConfiguration)
	}

	return cfg, nil
}

// VaultEnabled reports whether the GitHub token is read from Vault.
func (c Config) VaultEnabled() bool {
	return c.VaultAddr != "" && c.VaultGitHubTokenPath != ""
}

func (c Config) VaultOptions() secrets.VaultOptions {
	return secrets.VaultOptions{
		Address:          c.VaultAddr,
		Namespace:        c.VaultNamespace,
		AuthType:         c.VaultAuthType,
		Token:            c.VaultToken,
		AppRoleMountPath: c.VaultAppRoleMount,
		AppRoleRoleID:    c.VaultAppRoleRoleID,
		AppRoleSecretID:  c.VaultAppRoleSecretID,
	}
}

// MetricsEnabled is false when METRICS_ADDR is empty or "off".
func (c Config) MetricsEnabled() bool {
	switch strings.ToLower(strings.TrimSpace(c.MetricsAddr)) {
	case "", "off", "disabled", "false":
		return false
	}
	return true
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return def
	}
}
