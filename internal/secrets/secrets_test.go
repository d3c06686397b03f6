package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestVaultReadStringKVLayouts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Vault-Token"); got != "s.token" {
			t.Errorf("X-Vault-Token = %q", got)
		}
		switch r.URL.Path {
		case "/v1/secret/data/cbom/github":
			writeJSON(t, w, map[string]any{"data": map[string]any{
				"data":     map[string]any{"token": "ghp_v2", "other": "x"},
				"metadata": map[string]any{"version": 3},
			}})
		case "/v1/kv/cbom/github":
			writeJSON(t, w, map[string]any{"data": map[string]any{"pat": "ghp_v1"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewVaultClient(VaultOptions{Address: server.URL, Token: "s.token"})
	if err != nil {
		t.Fatalf("NewVaultClient() error = %v", err)
	}
	ctx := context.Background()

	got, err := client.ReadString(ctx, "/secret/data/cbom/github/", "")
	if err != nil {
		t.Fatalf("ReadString(v2) error = %v", err)
	}
	if got != "ghp_v2" {
		t.Fatalf("ReadString(v2) = %q", got)
	}

	got, err = client.ReadString(ctx, "kv/cbom/github", "pat")
	if err != nil {
		t.Fatalf("ReadString(v1) error = %v", err)
	}
	if got != "ghp_v1" {
		t.Fatalf("ReadString(v1) = %q", got)
	}

	if _, err := client.ReadString(ctx, "kv/cbom/github", "token"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound for missing key, got %v", err)
	}
	if _, err := client.ReadString(ctx, "kv/missing", ""); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound for missing path, got %v", err)
	}
}

func TestVaultClientAppRoleLogin(t *testing.T) {
	t.Parallel()

	var loginCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/platform-approle/login" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		if body["role_id"] != "role-id" || body["secret_id"] != "secret-id" {
			t.Errorf("unexpected login body: %v", body)
		}
		loginCalled = true
		writeJSON(t, w, map[string]any{"auth": map[string]any{"client_token": "token-from-approle"}})
	}))
	defer server.Close()

	_, err := NewVaultClient(VaultOptions{
		Address:          server.URL,
		AuthType:         AuthTypeAppRole,
		AppRoleMountPath: "platform-approle",
		AppRoleRoleID:    "role-id",
		AppRoleSecretID:  "secret-id",
	})
	if err != nil {
		t.Fatalf("NewVaultClient(approle) error = %v", err)
	}
	if !loginCalled {
		t.Fatalf("expected approle login endpoint to be called")
	}
}

func TestNewVaultClientValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts VaultOptions
	}{
		{name: "missing address", opts: VaultOptions{Token: "t"}},
		{name: "missing token", opts: VaultOptions{Address: "http://127.0.0.1:8200"}},
		{name: "bad auth type", opts: VaultOptions{Address: "http://127.0.0.1:8200", AuthType: "ldap"}},
		{name: "approle without role", opts: VaultOptions{Address: "http://127.0.0.1:8200", AuthType: AuthTypeAppRole, AppRoleSecretID: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewVaultClient(tt.opts); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestVaultNamespaceHintForHCP(t *testing.T) {
	t.Parallel()

	client := &VaultClient{addressHost: "cluster.hashicorp.cloud"}
	err := client.withNamespaceHint(errors.New("permission denied"))
	if !strings.Contains(err.Error(), "VAULT_NAMESPACE") {
		t.Fatalf("expected namespace hint in error, got %q", err.Error())
	}

	client.namespace = "admin"
	err = client.withNamespaceHint(errors.New("permission denied"))
	if strings.Contains(err.Error(), "VAULT_NAMESPACE") {
		t.Fatalf("did not expect namespace hint when namespace is set")
	}
}

type fakeReader struct {
	value string
	err   error
	path  string
	key   string
}

func (f *fakeReader) ReadString(_ context.Context, path, key string) (string, error) {
	f.path, f.key = path, key
	return f.value, f.err
}

func TestTokenResolver(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{value: "from-vault"}
	r := TokenResolver{Static: " static ", Reader: reader, Reference: ParseReference("secret/data/gh#pat")}
	got, err := r.Resolve(context.Background())
	if err != nil || got != "static" {
		t.Fatalf("Resolve() = %q, %v; want static token", got, err)
	}

	r.Static = ""
	got, err = r.Resolve(context.Background())
	if err != nil || got != "from-vault" {
		t.Fatalf("Resolve() = %q, %v; want vault token", got, err)
	}
	if reader.path != "secret/data/gh" || reader.key != "pat" {
		t.Fatalf("reader called with %q %q", reader.path, reader.key)
	}

	reader.err = ErrSecretNotFound
	if _, err := r.Resolve(context.Background()); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected wrapped ErrSecretNotFound, got %v", err)
	}

	empty := TokenResolver{}
	if empty.Configured() {
		t.Fatalf("empty resolver should not be configured")
	}
	if _, err := empty.Resolve(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, payload map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
