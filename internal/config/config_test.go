package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdirTemp(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configDirEnvKey, trustProjectConfigEnvKey, apiURLEnvKey, dbPathEnvKey,
		uploadRootEnvKey, smtpPasswordEnvKey, mediaAllowedTypesEnvKey,
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != "http://127.0.0.1:5000" {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.PublicPrefix != DefaultPublicPrefix {
		t.Fatalf("expected public prefix %q, got %q", DefaultPublicPrefix, cfg.PublicPrefix)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Media.MaxUploadBytes != DefaultMediaMaxUploadBytes {
		t.Fatalf("expected media max upload default %d, got %d", DefaultMediaMaxUploadBytes, cfg.Media.MaxUploadBytes)
	}
	if cfg.Media.MultipartMaxMemory != DefaultMediaMultipartMemory {
		t.Fatalf("expected media multipart default %d, got %d", DefaultMediaMultipartMemory, cfg.Media.MultipartMaxMemory)
	}
	if cfg.Mail.Port != DefaultMailPort {
		t.Fatalf("expected mail port %d, got %d", DefaultMailPort, cfg.Mail.Port)
	}
	if cfg.Mail.Enabled() {
		t.Fatal("expected mail disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"
upload_root = "/srv/uploads"

[mail]
host = "smtp.example.com"
port = 465
to = "sales@example.com"
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.UploadRoot != "/srv/uploads" {
		t.Fatalf("expected upload_root, got %q", cfg.UploadRoot)
	}
	if cfg.Mail.Host != "smtp.example.com" || cfg.Mail.Port != 465 || !cfg.Mail.Enabled() {
		t.Fatalf("unexpected mail config: %#v", cfg.Mail)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.equipcat.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"api_url",
		"db_path",
		"upload_root",
		"public_prefix",
		"log_level",
		"log_file",
		"media.max_upload_bytes",
		"media.multipart_max_memory",
		"media.allowed_media_types",
		"mail.host",
		"mail.port",
		"mail.to",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	for _, key := range []string{"invalid", "mail.password"} {
		if IsAllowedKey(key) {
			t.Fatalf("expected %q to not be allowed", key)
		}
	}
}

func TestGetKey(t *testing.T) {
	cfg := Config{
		APIURL:       "http://test:1234",
		DBPath:       "/tmp/test.db",
		UploadRoot:   "/tmp/uploads",
		PublicPrefix: "media",
		LogLevel:     "warn",
		Media: MediaConfig{
			MaxUploadBytes:     123,
			MultipartMaxMemory: 456,
			AllowedMediaTypes:  []string{"image/jpeg", "image/png"},
		},
		Mail: MailConfig{Host: "smtp.local", Port: 2525, From: "site@example.com"},
	}

	cases := map[string]string{
		"api_url":                    "http://test:1234",
		"db_path":                    "/tmp/test.db",
		"upload_root":                "/tmp/uploads",
		"public_prefix":              "media",
		"log_level":                  "warn",
		"media.max_upload_bytes":     "123",
		"media.multipart_max_memory": "456",
		"media.allowed_media_types":  "image/jpeg,image/png",
		"mail.host":                  "smtp.local",
		"mail.port":                  "2525",
		"mail.from":                  "site@example.com",
	}
	for key, want := range cases {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("%s: expected %q, got %q (err: %v)", key, want, got, err)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "api_url", "http://10.0.0.2:5000"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.2:5000" {
		t.Fatalf("expected api_url, got %q", cfg.APIURL)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("log_level = \"info\"\napi_url = \"http://keep\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.APIURL != "http://keep" {
		t.Fatalf("expected preserved api_url 'http://keep', got %q", cfg.APIURL)
	}
}

func TestSetKeyInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	if err := SetKey(path, "invalid_key", "value"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.toml")
	if err := SetKey(path, "mail.port", "465"); err != nil {
		t.Fatalf("set mail.port: %v", err)
	}
	if err := SetKey(path, "media.allowed_media_types", "image/png, image/jpeg"); err != nil {
		t.Fatalf("set media types: %v", err)
	}
	if err := SetKey(path, "mail.port", "not-a-port"); err == nil {
		t.Fatal("expected invalid port error")
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mail.Port != 465 {
		t.Fatalf("expected mail port 465, got %d", cfg.Mail.Port)
	}
	if len(cfg.Media.AllowedMediaTypes) != 2 {
		t.Fatalf("expected two media types, got %#v", cfg.Media.AllowedMediaTypes)
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	clearEnv(t)
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, configFileName), []byte("api_url = \"http://127.0.0.1:9001\"\n"), 0o644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("api_url = \"http://ignored\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdirTemp(t, workspace)

	t.Setenv(configDirEnvKey, configDir)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("expected config-dir api_url override, got %q", cfg.APIURL)
	}
	if cfg.DBPath != filepath.Join(workspace, DefaultDBFileName) {
		t.Fatalf("expected default workspace db path, got %q", cfg.DBPath)
	}
	if cfg.UploadRoot != filepath.Join(workspace, DefaultUploadRoot) {
		t.Fatalf("expected default workspace upload root, got %q", cfg.UploadRoot)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(configDirEnvKey, t.TempDir())
	t.Setenv(apiURLEnvKey, "http://example.com:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(uploadRootEnvKey, "/tmp/override-uploads")
	t.Setenv(smtpPasswordEnvKey, "s3cret")
	t.Setenv(mediaAllowedTypesEnvKey, "image/webp,IMAGE/PNG,bad type")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://example.com:8080" {
		t.Fatalf("expected env override for API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if cfg.UploadRoot != "/tmp/override-uploads" {
		t.Fatalf("expected env override for upload root, got %q", cfg.UploadRoot)
	}
	if cfg.Mail.Password != "s3cret" {
		t.Fatal("expected smtp password from env")
	}
	if len(cfg.Media.AllowedMediaTypes) != 2 || cfg.Media.AllowedMediaTypes[0] != "image/png" || cfg.Media.AllowedMediaTypes[1] != "image/webp" {
		t.Fatalf("expected normalized media types, got %#v", cfg.Media.AllowedMediaTypes)
	}
}

func TestLoadNormalizesEmptyValues(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(homeDir, configFileName), []byte("log_level = \"\"\npublic_prefix = \"/\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	chdirTemp(t, t.TempDir())
	t.Setenv("HOME", homeDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.PublicPrefix != DefaultPublicPrefix {
		t.Fatalf("expected default public prefix, got %q", cfg.PublicPrefix)
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, configFileName), []byte("public_prefix = \"home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("public_prefix = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdirTemp(t, workspace)
	t.Setenv("HOME", homeDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PublicPrefix != "home" {
		t.Fatalf("expected global public prefix, got %q", cfg.PublicPrefix)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(homeDir, configFileName), []byte("public_prefix = \"home\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("public_prefix = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdirTemp(t, workspace)
	t.Setenv("HOME", homeDir)
	t.Setenv(trustProjectConfigEnvKey, "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PublicPrefix != "project" {
		t.Fatalf("expected trusted project public prefix, got %q", cfg.PublicPrefix)
	}
	expectedPath := filepath.Join(workspace, configFileName)
	if cfg.TrustedProjectConfigPath != expectedPath {
		t.Fatalf("expected trusted project config path %q, got %q", expectedPath, cfg.TrustedProjectConfigPath)
	}
}

func TestLoadDoesNotTrustProjectConfigOnInvalidEnvValue(t *testing.T) {
	clearEnv(t)
	homeDir := t.TempDir()
	workspace := t.TempDir()

	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("public_prefix = \"project\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	chdirTemp(t, workspace)
	t.Setenv("HOME", homeDir)
	t.Setenv(trustProjectConfigEnvKey, "definitely-not-bool")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PublicPrefix != DefaultPublicPrefix {
		t.Fatalf("expected default public prefix with invalid trust env, got %q", cfg.PublicPrefix)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project config path, got %q", cfg.TrustedProjectConfigPath)
	}
}
