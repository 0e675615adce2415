package plugin

import "strings"

// Config selects an external writer plugin.
type Config struct {
	// Binary is the path to the plugin binary
	Binary string `yaml:"binary" json:"binary"`
	// Config holds the plugin-specific configuration key-value pairs
	Config map[string]string `yaml:"config" json:"config"`
}

// Enabled reports whether a plugin binary is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Binary) != ""
}

// Settings returns a copy of the plugin configuration with defaults
// filled in for keys the caller knows.
func (c Config) Settings(defaults map[string]string) map[string]string {
	out := make(map[string]string, len(c.Config)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range c.Config {
		out[k] = v
	}
	return out
}
