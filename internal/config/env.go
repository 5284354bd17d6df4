package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvConfigPath names an explicit config file, used when no --config flag is given
const EnvConfigPath = "JLS_CONFIG_PATH"

// EnvOverride records an environment variable that replaced a config value
type EnvOverride struct {
	EnvVar string `json:"envVar"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindList
)

type envBinding struct {
	env  string
	key  string
	kind valueKind
}

var envBindings = []envBinding{
	{"JLS_COMPILER_COMMAND", "compiler.command", kindString},
	{"JLS_COMPILER_EXTRA_ARGS", "compiler.extraArgs", kindList},
	{"JLS_COMPILER_SOURCE_ROOTS", "compiler.sourceRoots", kindList},
	{"JLS_COMPILER_EXCLUDE", "compiler.exclude", kindList},
	{"JLS_BUILD_MAVEN_COMMAND", "build.mavenCommand", kindString},
	{"JLS_BUILD_GRADLE_COMMAND", "build.gradleCommand", kindString},
	{"JLS_INDEX_ENABLED", "index.enabled", kindBool},
	{"JLS_INDEX_WORKERS", "index.workers", kindInt},
	{"JLS_SERVER_NOTIFICATION_QUEUE_SIZE", "server.notificationQueueSize", kindInt},
	{"JLS_SERVER_WATCH_MANIFESTS", "server.watchManifests", kindBool},
	{"JLS_SERVER_WATCH_DEBOUNCE_MS", "server.watchDebounceMs", kindInt},
	{"JLS_LOGGING_LEVEL", "logging.level", kindString},
	{"JLS_LOGGING_FORMAT", "logging.format", kindString},
	{"JLS_LOGGING_FILE", "logging.file", kindString},
	{"JLS_LOGGING_MAX_SIZE", "logging.maxSize", kindString},
	{"JLS_LOGGING_MAX_BACKUPS", "logging.maxBackups", kindInt},
	{"JLS_TELEMETRY_METRICS_ADDR", "telemetry.metricsAddr", kindString},
	{"JLS_PATHS_CACHE_DIR", "paths.cacheDir", kindString},
}

// applyEnvOverrides sets every bound key whose variable is present. Values
// that do not parse are skipped and reported as warnings.
func applyEnvOverrides(v *viper.Viper) ([]EnvOverride, []string) {
	var overrides []EnvOverride
	var warnings []string
	for _, b := range envBindings {
		raw, ok := os.LookupEnv(b.env)
		if !ok {
			continue
		}
		value, err := parseEnvValue(raw, b.kind)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring %s=%q: %v", b.env, raw, err))
			continue
		}
		v.Set(b.key, value)
		overrides = append(overrides, EnvOverride{EnvVar: b.env, Key: b.key, Value: raw})
	}
	return overrides, warnings
}

func parseEnvValue(raw string, kind valueKind) (interface{}, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(strings.TrimSpace(raw))
	case kindBool:
		return strconv.ParseBool(strings.TrimSpace(raw))
	case kindList:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if items == nil {
			items = []string{}
		}
		return items, nil
	default:
		return raw, nil
	}
}

// GetSupportedEnvVars returns the environment variables that override config
// keys, plus JLS_CONFIG_PATH.
func GetSupportedEnvVars() []string {
	vars := make([]string, 0, len(envBindings)+1)
	vars = append(vars, EnvConfigPath)
	for _, b := range envBindings {
		vars = append(vars, b.env)
	}
	return vars
}
