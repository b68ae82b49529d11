package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSecretsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnvProvider_Name(t *testing.T) {
	p := NewEnvProvider("")
	if p.Name() != "env" {
		t.Fatalf("expected 'env', got %s", p.Name())
	}
}

func TestEnvProvider_Get_WithPrefix(t *testing.T) {
	os.Setenv("PAKLEX_TEST_SECRET", "secret_value")
	defer os.Unsetenv("PAKLEX_TEST_SECRET")

	p := NewEnvProvider("PAKLEX_")
	val, err := p.Get(context.Background(), "test_secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "secret_value" {
		t.Fatalf("expected 'secret_value', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	os.Setenv("TEST_SECRET_NO_PREFIX", "direct_value")
	defer os.Unsetenv("TEST_SECRET_NO_PREFIX")

	p := NewEnvProvider("PAKLEX_")
	val, err := p.Get(context.Background(), "test_secret_no_prefix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct_value" {
		t.Fatalf("expected 'direct_value', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("PAKLEX_")
	if _, err := p.Get(context.Background(), "nonexistent_secret_xyz"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestEnvProvider_DefaultPrefix(t *testing.T) {
	p := NewEnvProvider("")
	if p.prefix != "PAKLEX_" {
		t.Fatalf("expected default prefix 'PAKLEX_', got %s", p.prefix)
	}
}

func TestFileProvider_Get(t *testing.T) {
	path := writeSecretsFile(t, `{"llm_api_key":"sk-test"}`)
	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := p.Get(context.Background(), "llm_api_key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "sk-test" {
		t.Fatalf("expected 'sk-test', got %s", val)
	}

	if _, err := p.Get(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestFileProvider_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	if _, err := NewFileProvider(&FileConfig{Path: path}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileProvider_MalformedFile(t *testing.T) {
	path := writeSecretsFile(t, `not json`)
	if _, err := NewFileProvider(&FileConfig{Path: path}); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestFileProvider_Reload(t *testing.T) {
	path := writeSecretsFile(t, `{"key1":"value1"}`)
	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	os.WriteFile(path, []byte(`{"key1":"modified","key2":"new"}`), 0o600)
	if err := p.Reload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	val, _ := p.Get(ctx, "key1")
	if val != "modified" {
		t.Fatalf("expected 'modified', got %s", val)
	}
	val, _ = p.Get(ctx, "key2")
	if val != "new" {
		t.Fatalf("expected 'new', got %s", val)
	}
}

func TestFileProvider_MissingPath(t *testing.T) {
	if _, err := NewFileProvider(&FileConfig{Path: ""}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestManager_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "env" {
		t.Fatalf("expected 'env' provider, got %s", cfg.Provider)
	}
	if cfg.EnvPrefix != "PAKLEX_" {
		t.Fatalf("expected 'PAKLEX_' prefix, got %s", cfg.EnvPrefix)
	}
}

func TestManager_EnvProvider(t *testing.T) {
	os.Setenv("PAKLEX_MANAGER_TEST", "manager_value")
	defer os.Unsetenv("PAKLEX_MANAGER_TEST")

	m, err := NewManager(&Config{Provider: "env", EnvPrefix: "PAKLEX_"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := m.Get(context.Background(), "manager_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "manager_value" {
		t.Fatalf("expected 'manager_value', got %s", val)
	}
}

func TestManager_FileProvider(t *testing.T) {
	path := writeSecretsFile(t, `{"llm_api_key":"from-file"}`)
	m, err := NewManager(&Config{
		Provider:   "file",
		FileConfig: &FileConfig{Path: path},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := m.Get(context.Background(), string(SecretLLMAPIKey))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "from-file" {
		t.Fatalf("expected 'from-file', got %s", val)
	}
}

func TestManager_Fallback(t *testing.T) {
	os.Setenv("PAKLEX_FALLBACK_TEST", "fallback_value")
	defer os.Unsetenv("PAKLEX_FALLBACK_TEST")

	path := writeSecretsFile(t, `{}`)
	m, err := NewManager(&Config{
		Provider:   "file",
		FileConfig: &FileConfig{Path: path},
		EnvPrefix:  "PAKLEX_",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Key not in file, should fall back to env
	val, err := m.Get(context.Background(), "fallback_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "fallback_value" {
		t.Fatalf("expected 'fallback_value', got %s", val)
	}
}

func TestManager_GetOrDefault(t *testing.T) {
	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "PAKLEX_"})

	val := m.GetOrDefault(context.Background(), "nonexistent_key_xyz", "default_val")
	if val != "default_val" {
		t.Fatalf("expected 'default_val', got %s", val)
	}
}

func TestManager_Cache(t *testing.T) {
	os.Setenv("PAKLEX_CACHE_TEST", "cached_value")
	defer os.Unsetenv("PAKLEX_CACHE_TEST")

	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "PAKLEX_"})
	ctx := context.Background()

	m.Get(ctx, "cache_test")
	os.Setenv("PAKLEX_CACHE_TEST", "new_value")

	val, _ := m.Get(ctx, "cache_test")
	if val != "cached_value" {
		t.Fatalf("expected cached 'cached_value', got %s", val)
	}

	m.ClearCache()

	val, _ = m.Get(ctx, "cache_test")
	if val != "new_value" {
		t.Fatalf("expected 'new_value' after cache clear, got %s", val)
	}
}

func TestManager_DisableCache(t *testing.T) {
	os.Setenv("PAKLEX_NOCACHE_TEST", "initial")
	defer os.Unsetenv("PAKLEX_NOCACHE_TEST")

	m, _ := NewManager(&Config{Provider: "env", EnvPrefix: "PAKLEX_"})
	m.DisableCache()

	ctx := context.Background()
	m.Get(ctx, "nocache_test")

	os.Setenv("PAKLEX_NOCACHE_TEST", "changed")

	val, _ := m.Get(ctx, "nocache_test")
	if val != "changed" {
		t.Fatalf("expected 'changed' with cache disabled, got %s", val)
	}
}

func TestManager_UnknownProvider(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "unknown_provider"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestManager_FileWithoutConfig(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "file"}); err == nil {
		t.Fatal("expected error for file without config")
	}
}
