// Package config loads the taskline workspace configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
	"github.com/felixgeelhaar/taskline/pkg/storage"
)

// Environment overrides.
const (
	EnvVault       = "TASKLINE_VAULT"
	EnvDefaultPath = "TASKLINE_DEFAULT_PATH"
)

// Config is the contents of .taskline/config.yaml.
type Config struct {
	Vault           string        `yaml:"vault,omitempty"`
	DefaultPath     string        `yaml:"default_path" validate:"required,endswith=.md"`
	DefaultHeading  string        `yaml:"default_heading,omitempty" validate:"omitempty,startswith=#"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	Watch           WatchConfig   `yaml:"watch"`
	Writer          WriterConfig  `yaml:"writer"`
}

// WatchConfig controls the vault watcher.
type WatchConfig struct {
	Include  []string      `yaml:"include,omitempty" validate:"dive,required"`
	Exclude  []string      `yaml:"exclude,omitempty" validate:"dive,required"`
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// WriterConfig selects how pending changes reach the documents.
type WriterConfig struct {
	Plugin domainPlugin.Config `yaml:"plugin,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultPath:     "Tasks.md",
		DefaultHeading:  "## Inbox",
		RefreshInterval: 30 * time.Second,
		Watch: WatchConfig{
			Include:  []string{"*.md"},
			Debounce: 300 * time.Millisecond,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Load reads the configuration of the workspace at root, layering the file
// over the defaults and the environment over the file. A missing file
// yields the defaults.
func Load(root string) (*Config, error) {
	cfg := Default()

	ws := storage.NewWorkspace(root)
	path, err := ws.ResolvePath(storage.ConfigFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- path is resolved via Workspace.ResolvePath
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if v := os.Getenv(EnvVault); v != "" {
		cfg.Vault = v
	}
	if v := os.Getenv(EnvDefaultPath); v != "" {
		cfg.DefaultPath = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to the workspace at root.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ws := storage.NewWorkspace(root)
	path, err := ws.ResolvePath(storage.ConfigFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// VaultRoot returns the vault directory: the configured one, resolved
// against root when relative, or root itself.
func (c *Config) VaultRoot(root string) string {
	if c.Vault == "" {
		return root
	}
	if filepath.IsAbs(c.Vault) {
		return c.Vault
	}
	return filepath.Join(root, c.Vault)
}
