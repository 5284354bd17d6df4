package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, root, content string) string {
	t.Helper()
	path := filepath.Join(root, ".jls", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Compiler.Command != "javac" {
		t.Errorf("Compiler.Command = %q, want javac", cfg.Compiler.Command)
	}
	if cfg.Compiler.SourceExtension != ".java" || cfg.Compiler.ClassExtension != ".class" {
		t.Errorf("extensions = %q/%q", cfg.Compiler.SourceExtension, cfg.Compiler.ClassExtension)
	}
	if !slices.Contains(cfg.Compiler.Exclude, "**/.git/**") {
		t.Errorf("Exclude = %v, want **/.git/**", cfg.Compiler.Exclude)
	}
	if cfg.Build.MavenCommand != "mvn" || cfg.Build.GradleCommand != "gradle" {
		t.Errorf("build commands = %q/%q", cfg.Build.MavenCommand, cfg.Build.GradleCommand)
	}
	if !cfg.Index.Enabled || cfg.Index.Workers != 4 {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Server.NotificationQueueSize != 64 {
		t.Errorf("NotificationQueueSize = %d, want 64", cfg.Server.NotificationQueueSize)
	}
	if !cfg.Server.WatchManifests || cfg.Server.WatchDebounceMs != 500 {
		t.Errorf("Server watch = %v/%d, want true/500", cfg.Server.WatchManifests, cfg.Server.WatchDebounceMs)
	}
	if cfg.Telemetry.MetricsAddr != "" {
		t.Error("metrics should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{"defaults", func(*Config) {}, "", false},
		{"empty command", func(c *Config) { c.Compiler.Command = "" }, "compiler.command", true},
		{"zero workers", func(c *Config) { c.Index.Workers = 0 }, "index.workers", true},
		{"negative queue", func(c *Config) { c.Server.NotificationQueueSize = -1 }, "server.notificationQueueSize", true},
		{"negative debounce", func(c *Config) { c.Server.WatchDebounceMs = -1 }, "server.watchDebounceMs", true},
		{"zero debounce", func(c *Config) { c.Server.WatchDebounceMs = 0 }, "", false},
		{"json format", func(c *Config) { c.Logging.Format = "json" }, "", false},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format", true},
		{"bad glob", func(c *Config) { c.Compiler.Exclude = []string{"src/[a-"} }, "compiler.exclude", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			cerr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() error type = %T, want *ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "index.workers", Message: "must be positive, got 0"}
	want := "config error in field 'index.workers': must be positive, got 0"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	result, err := LoadConfigWithDetails(t.TempDir(), "")
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if !result.UsedDefaults {
		t.Error("UsedDefaults should be true when no config file exists")
	}
	if result.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty", result.ConfigPath)
	}
	if result.Config.Compiler.Command != "javac" || result.Config.Server.NotificationQueueSize != 64 {
		t.Errorf("defaults not applied: %+v", result.Config)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, `
[compiler]
command = "/opt/jdk/bin/javac"
extraArgs = ["-source", "17"]
sourceRoots = ["app/src"]

[index]
workers = 8

[logging]
level = "debug"
format = "json"
`)

	result, err := LoadConfigWithDetails(root, "")
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	cfg := result.Config
	if result.UsedDefaults || result.ConfigPath != path {
		t.Errorf("UsedDefaults = %v, ConfigPath = %q", result.UsedDefaults, result.ConfigPath)
	}
	if cfg.Compiler.Command != "/opt/jdk/bin/javac" {
		t.Errorf("Compiler.Command = %q", cfg.Compiler.Command)
	}
	if !slices.Equal(cfg.Compiler.ExtraArgs, []string{"-source", "17"}) {
		t.Errorf("ExtraArgs = %v", cfg.Compiler.ExtraArgs)
	}
	if !slices.Equal(cfg.Compiler.SourceRoots, []string{"app/src"}) {
		t.Errorf("SourceRoots = %v", cfg.Compiler.SourceRoots)
	}
	if cfg.Index.Workers != 8 {
		t.Errorf("Index.Workers = %d, want 8", cfg.Index.Workers)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Compiler.SourceExtension != ".java" || !cfg.Index.Enabled || cfg.Build.MavenCommand != "mvn" {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
}

func TestLoadConfig_UnknownKeysWarn(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[compiler]
command = "javac"
optimize = true

[plugins]
enabled = true
`)

	result, err := LoadConfigWithDetails(root, "")
	if err != nil {
		t.Fatalf("unknown keys must not fail loading: %v", err)
	}
	joined := strings.Join(result.Warnings, "\n")
	for _, key := range []string{"compiler.optimize", "plugins.enabled"} {
		if !strings.Contains(joined, key) {
			t.Errorf("Warnings = %v, want mention of %s", result.Warnings, key)
		}
	}
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[compiler\ncommand = ")

	if _, err := LoadConfig(root); err == nil {
		t.Error("LoadConfig() should fail on malformed TOML")
	}
}

func TestLoadConfigWithDetails_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[server]\nnotificationQueueSize = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := LoadConfigWithDetails(t.TempDir(), path)
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.ConfigPath != path || result.Config.Server.NotificationQueueSize != 5 {
		t.Errorf("ConfigPath = %q, queue = %d", result.ConfigPath, result.Config.Server.NotificationQueueSize)
	}

	if _, err := LoadConfigWithDetails(dir, filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("a missing explicit config file should be an error")
	}
}

func TestLoadConfigWithDetails_EnvConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.toml")
	if err := os.WriteFile(path, []byte("[build]\nmavenCommand = \"./mvnw\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)

	result, err := LoadConfigWithDetails(t.TempDir(), "")
	if err != nil {
		t.Fatalf("LoadConfigWithDetails() error = %v", err)
	}
	if result.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", result.ConfigPath, path)
	}
	if result.Config.Build.MavenCommand != "./mvnw" {
		t.Errorf("MavenCommand = %q, want ./mvnw", result.Config.Build.MavenCommand)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, result *LoadResult)
	}{
		{
			name:    "logging level override",
			envVars: map[string]string{"JLS_LOGGING_LEVEL": "debug"},
			validate: func(t *testing.T, result *LoadResult) {
				if result.Config.Logging.Level != "debug" {
					t.Errorf("Logging.Level = %q, want debug", result.Config.Logging.Level)
				}
				if len(result.EnvOverrides) != 1 || result.EnvOverrides[0].Key != "logging.level" {
					t.Errorf("EnvOverrides = %+v", result.EnvOverrides)
				}
			},
		},
		{
			name:    "int override",
			envVars: map[string]string{"JLS_INDEX_WORKERS": "12"},
			validate: func(t *testing.T, result *LoadResult) {
				if result.Config.Index.Workers != 12 {
					t.Errorf("Index.Workers = %d, want 12", result.Config.Index.Workers)
				}
			},
		},
		{
			name:    "bool override",
			envVars: map[string]string{"JLS_INDEX_ENABLED": "false"},
			validate: func(t *testing.T, result *LoadResult) {
				if result.Config.Index.Enabled {
					t.Error("Index.Enabled should be false")
				}
			},
		},
		{
			name:    "list override",
			envVars: map[string]string{"JLS_COMPILER_EXTRA_ARGS": "-g, -parameters"},
			validate: func(t *testing.T, result *LoadResult) {
				if !slices.Equal(result.Config.Compiler.ExtraArgs, []string{"-g", "-parameters"}) {
					t.Errorf("ExtraArgs = %v", result.Config.Compiler.ExtraArgs)
				}
			},
		},
		{
			name: "multiple overrides",
			envVars: map[string]string{
				"JLS_LOGGING_LEVEL":                  "warn",
				"JLS_SERVER_NOTIFICATION_QUEUE_SIZE": "128",
				"JLS_TELEMETRY_METRICS_ADDR":         ":9464",
			},
			validate: func(t *testing.T, result *LoadResult) {
				cfg := result.Config
				if cfg.Logging.Level != "warn" || cfg.Server.NotificationQueueSize != 128 || cfg.Telemetry.MetricsAddr != ":9464" {
					t.Errorf("overrides not applied: %+v", cfg)
				}
				if len(result.EnvOverrides) != 3 {
					t.Errorf("len(EnvOverrides) = %d, want 3", len(result.EnvOverrides))
				}
			},
		},
		{
			name:    "bool override",
			envVars: map[string]string{"JLS_SERVER_WATCH_MANIFESTS": "false"},
			validate: func(t *testing.T, result *LoadResult) {
				if result.Config.Server.WatchManifests {
					t.Error("WatchManifests should be disabled by env")
				}
			},
		},
		{
			name:    "invalid int ignored",
			envVars: map[string]string{"JLS_INDEX_WORKERS": "many"},
			validate: func(t *testing.T, result *LoadResult) {
				if result.Config.Index.Workers != 4 {
					t.Errorf("Index.Workers = %d, want 4 (default)", result.Config.Index.Workers)
				}
				if len(result.EnvOverrides) != 0 {
					t.Errorf("EnvOverrides = %+v, want none", result.EnvOverrides)
				}
				if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "JLS_INDEX_WORKERS") {
					t.Errorf("Warnings = %v", result.Warnings)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			result, err := LoadConfigWithDetails(t.TempDir(), "")
			if err != nil {
				t.Fatalf("LoadConfigWithDetails() error = %v", err)
			}
			tt.validate(t, result)
		})
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[logging]\nlevel = \"error\"\n")
	t.Setenv("JLS_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Compiler.ExtraArgs = []string{"-Xlint:all"}
	cfg.Index.Workers = 2
	cfg.Telemetry.MetricsAddr = "127.0.0.1:9464"

	path := filepath.Join(root, ".jls", "config.toml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	result, err := LoadConfigWithDetails(root, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := result.Config
	if !slices.Equal(got.Compiler.ExtraArgs, []string{"-Xlint:all"}) || got.Index.Workers != 2 || got.Telemetry.MetricsAddr != "127.0.0.1:9464" {
		t.Errorf("reloaded config differs: %+v", got)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("saved config should have no unknown keys, got %v", result.Warnings)
	}
}

func TestSave_ErrorHandling(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := DefaultConfig().Save(filepath.Join(blocker, "config.toml")); err == nil {
		t.Error("Save() under a regular file should fail")
	}
}

func TestConfig_CacheDir(t *testing.T) {
	tmp := t.TempDir()
	cfg := DefaultConfig()
	if got, want := cfg.CacheDir("", tmp), filepath.Join(tmp, "jls"); got != want {
		t.Errorf("CacheDir = %q, want %q", got, want)
	}
	cfg.Paths.CacheDir = "/var/cache/jls"
	if got := cfg.CacheDir("", tmp); got != "/var/cache/jls" {
		t.Errorf("CacheDir override = %q", got)
	}
}

func TestGetSupportedEnvVars(t *testing.T) {
	vars := GetSupportedEnvVars()
	for _, want := range []string{EnvConfigPath, "JLS_LOGGING_LEVEL", "JLS_COMPILER_COMMAND", "JLS_INDEX_WORKERS"} {
		if !slices.Contains(vars, want) {
			t.Errorf("GetSupportedEnvVars() missing %s", want)
		}
	}
}
