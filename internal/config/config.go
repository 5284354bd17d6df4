package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"jls/internal/paths"
)

// Config represents the complete jls configuration
type Config struct {
	Compiler  CompilerConfig  `json:"compiler" mapstructure:"compiler" toml:"compiler"`
	Build     BuildConfig     `json:"build" mapstructure:"build" toml:"build"`
	Index     IndexConfig     `json:"index" mapstructure:"index" toml:"index"`
	Server    ServerConfig    `json:"server" mapstructure:"server" toml:"server"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry" toml:"telemetry"`
	Paths     PathsConfig     `json:"paths" mapstructure:"paths" toml:"paths"`
}

// CompilerConfig controls the external Java compiler
type CompilerConfig struct {
	Command         string   `json:"command" mapstructure:"command" toml:"command"`
	ExtraArgs       []string `json:"extraArgs" mapstructure:"extraArgs" toml:"extraArgs"`
	SourceExtension string   `json:"sourceExtension" mapstructure:"sourceExtension" toml:"sourceExtension"`
	ClassExtension  string   `json:"classExtension" mapstructure:"classExtension" toml:"classExtension"`
	// SourceRoots overrides the per-project-kind source roots when non-empty
	SourceRoots []string `json:"sourceRoots" mapstructure:"sourceRoots" toml:"sourceRoots"`
	// Exclude holds doublestar patterns, matched against root-relative slash paths
	Exclude []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`
}

// BuildConfig names the build tool executables used for classpath resolution
type BuildConfig struct {
	MavenCommand  string `json:"mavenCommand" mapstructure:"mavenCommand" toml:"mavenCommand"`
	GradleCommand string `json:"gradleCommand" mapstructure:"gradleCommand" toml:"gradleCommand"`
}

// IndexConfig controls classpath indexing
type IndexConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	Workers int  `json:"workers" mapstructure:"workers" toml:"workers"`
}

// ServerConfig controls the language server loop
type ServerConfig struct {
	NotificationQueueSize int `json:"notificationQueueSize" mapstructure:"notificationQueueSize" toml:"notificationQueueSize"`
	// WatchManifests refreshes the classpath when pom.xml or a Gradle script changes
	WatchManifests  bool `json:"watchManifests" mapstructure:"watchManifests" toml:"watchManifests"`
	WatchDebounceMs int  `json:"watchDebounceMs" mapstructure:"watchDebounceMs" toml:"watchDebounceMs"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" toml:"level"`
	Format     string `json:"format" mapstructure:"format" toml:"format"` // "human" or "json"
	File       string `json:"file" mapstructure:"file" toml:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize" toml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups"`
}

// TelemetryConfig controls the metrics endpoint
type TelemetryConfig struct {
	// MetricsAddr is the listen address of the Prometheus endpoint; empty disables it
	MetricsAddr string `json:"metricsAddr" mapstructure:"metricsAddr" toml:"metricsAddr"`
}

// PathsConfig overrides derived filesystem locations
type PathsConfig struct {
	CacheDir string `json:"cacheDir" mapstructure:"cacheDir" toml:"cacheDir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Command:         "javac",
			ExtraArgs:       []string{},
			SourceExtension: ".java",
			ClassExtension:  ".class",
			SourceRoots:     []string{},
			Exclude:         []string{"**/.git/**", "**/node_modules/**"},
		},
		Build: BuildConfig{
			MavenCommand:  "mvn",
			GradleCommand: "gradle",
		},
		Index: IndexConfig{
			Enabled: true,
			Workers: 4,
		},
		Server: ServerConfig{
			NotificationQueueSize: 64,
			WatchManifests:        true,
			WatchDebounceMs:       500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "human",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// LoadResult contains the loaded config and how it was produced
type LoadResult struct {
	Config       *Config
	ConfigPath   string        // file that was read, empty when defaults were used
	UsedDefaults bool          // true when no config file was found
	EnvOverrides []EnvOverride // environment variables that changed a setting
	Warnings     []string      // unknown keys and ignored environment values
}

// LoadConfig loads configuration from <root>/.jls/config.toml
func LoadConfig(root string) (*Config, error) {
	result, err := LoadConfigWithDetails(root, "")
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadConfigWithDetails loads configuration and reports where it came from.
// The file is taken from configPath, then JLS_CONFIG_PATH, then the project
// default. Only a missing project default falls back to defaults; a missing
// explicit file is an error.
func LoadConfigWithDetails(root, configPath string) (*LoadResult, error) {
	explicit := true
	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath == "" {
		configPath = paths.ConfigPath(root)
		explicit = false
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	result := &LoadResult{}
	if _, err := os.Stat(configPath); err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		result.UsedDefaults = true
	} else {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
		result.ConfigPath = configPath
		result.Warnings = append(result.Warnings, unknownKeys(configPath)...)
	}

	overrides, warnings := applyEnvOverrides(v)
	result.EnvOverrides = overrides
	result.Warnings = append(result.Warnings, warnings...)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	result.Config = &cfg
	return result, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("compiler.command", d.Compiler.Command)
	v.SetDefault("compiler.extraArgs", d.Compiler.ExtraArgs)
	v.SetDefault("compiler.sourceExtension", d.Compiler.SourceExtension)
	v.SetDefault("compiler.classExtension", d.Compiler.ClassExtension)
	v.SetDefault("compiler.sourceRoots", d.Compiler.SourceRoots)
	v.SetDefault("compiler.exclude", d.Compiler.Exclude)
	v.SetDefault("build.mavenCommand", d.Build.MavenCommand)
	v.SetDefault("build.gradleCommand", d.Build.GradleCommand)
	v.SetDefault("index.enabled", d.Index.Enabled)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("server.notificationQueueSize", d.Server.NotificationQueueSize)
	v.SetDefault("server.watchManifests", d.Server.WatchManifests)
	v.SetDefault("server.watchDebounceMs", d.Server.WatchDebounceMs)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("telemetry.metricsAddr", d.Telemetry.MetricsAddr)
	v.SetDefault("paths.cacheDir", d.Paths.CacheDir)
}

// Save writes the configuration as TOML to path, creating parent directories
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CacheDir returns paths.cacheDir when set, else the derived cache directory.
func (c *Config) CacheDir(home, tmp string) string {
	if c.Paths.CacheDir != "" {
		return c.Paths.CacheDir
	}
	return paths.CacheDir(home, tmp)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Compiler.Command == "" {
		return &ConfigError{Field: "compiler.command", Message: "must not be empty"}
	}
	if c.Index.Workers <= 0 {
		return &ConfigError{Field: "index.workers", Message: fmt.Sprintf("must be positive, got %d", c.Index.Workers)}
	}
	if c.Server.NotificationQueueSize <= 0 {
		return &ConfigError{Field: "server.notificationQueueSize", Message: fmt.Sprintf("must be positive, got %d", c.Server.NotificationQueueSize)}
	}
	if c.Server.WatchDebounceMs < 0 {
		return &ConfigError{Field: "server.watchDebounceMs", Message: fmt.Sprintf("must not be negative, got %d", c.Server.WatchDebounceMs)}
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	for _, pattern := range c.Compiler.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "compiler.exclude", Message: fmt.Sprintf("invalid glob %q", pattern)}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
