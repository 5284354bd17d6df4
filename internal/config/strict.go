package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// unknownKeys decodes path strictly and returns one warning per key that no
// Config field consumes. Decode errors become a single warning; viper has
// already accepted the file by the time this runs.
func unknownKeys(path string) []string {
	var shape Config
	md, err := toml.DecodeFile(path, &shape)
	if err != nil {
		return []string{fmt.Sprintf("strict decode of %s: %v", path, err)}
	}
	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key %q", key.String()))
	}
	return warnings
}
