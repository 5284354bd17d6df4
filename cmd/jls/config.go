package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"jls/internal/config"
	"jls/internal/paths"
)

var (
	configForce    bool
	configFormat   string
	configShowDiff bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jls configuration",
	Long:  "View and manage jls configuration stored in .jls/config.toml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the default configuration to <root>/.jls/config.toml, or to the
file named by --config.

An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after defaults, the config file and
environment overrides are applied.

Examples:
  jls config show              # TOML
  jls config show --format json
  jls config show --diff       # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format (toml, json)")
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show --format json
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults"`
	EnvOverrides []config.EnvOverride   `json:"envOverrides,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
	Config       map[string]interface{} `json:"config"`
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFlag
	if path == "" {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		path = paths.ConfigPath(root)
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	result, err := config.LoadConfigWithDetails(root, configFlag)
	if err != nil {
		return err
	}

	current, err := toMap(result.Config)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaults, err := toMap(config.DefaultConfig())
		if err != nil {
			return err
		}
		current = computeDiff(current, defaults)
	}

	out := cmd.OutOrStdout()
	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(ConfigShowResponse{
			ConfigPath:   result.ConfigPath,
			UsedDefaults: result.UsedDefaults,
			EnvOverrides: result.EnvOverrides,
			Warnings:     result.Warnings,
			Config:       current,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "toml":
		if result.UsedDefaults {
			fmt.Fprintln(out, "# source: defaults (no config file found)")
		} else {
			fmt.Fprintf(out, "# source: %s\n", result.ConfigPath)
		}
		for _, o := range result.EnvOverrides {
			fmt.Fprintf(out, "# %s=%s -> %s\n", o.EnvVar, o.Value, o.Key)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "# warning: %s\n", w)
		}
		data, err := toml.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to marshal TOML: %w", err)
		}
		fmt.Fprint(out, string(data))
	default:
		return fmt.Errorf("unsupported format: %s", configFormat)
	}
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Supported jls Environment Variables")
	fmt.Fprintln(out, strings.Repeat("─", 50))
	for _, v := range GetEnvVarMappings() {
		fmt.Fprintf(out, "  %s\n", v)
	}
}

// toMap converts the config to a generic map via its JSON form
func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return m, nil
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	computeDiffRecursive(current, defaults, diff)
	return diff
}

func computeDiffRecursive(current, defaults map[string]interface{}, diff map[string]interface{}) {
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			nestedDiff := make(map[string]interface{})
			computeDiffRecursive(currentMap, defaultMap, nestedDiff)
			if len(nestedDiff) > 0 {
				diff[key] = nestedDiff
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
}

// GetEnvVarMappings returns the list of supported env vars for documentation
func GetEnvVarMappings() []string {
	vars := config.GetSupportedEnvVars()
	sort.Strings(vars)
	return vars
}
