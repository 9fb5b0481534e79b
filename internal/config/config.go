// Package config loads kanbanbar settings from ~/.kanbanbar/config.yaml, a .env file
// in the working directory and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds user preferences.
type Config struct {
	GitHub GitHubConfig `mapstructure:"github" yaml:"github"`
	Board  BoardConfig  `mapstructure:"board" yaml:"board"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// GitHubConfig holds API endpoints and the OAuth app credentials.
type GitHubConfig struct {
	ClientID     string        `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string        `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
	GraphQLURL   string        `mapstructure:"graphql_url" yaml:"graphql_url"`
	RESTURL      string        `mapstructure:"rest_url" yaml:"rest_url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"` // zero leaves requests unbounded
	CallbackAddr string        `mapstructure:"callback_addr" yaml:"callback_addr"`
}

// BoardConfig holds board defaults.
type BoardConfig struct {
	// Project is the project opened at startup, by title or number. Empty opens the picker.
	Project string `mapstructure:"project" yaml:"project"`
	// Filter is one of all, assigned, created, mentioned.
	Filter string `mapstructure:"filter" yaml:"filter"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
	File   string `mapstructure:"file" yaml:"file"`     // empty logs to stderr
}

// EnvPrefix prefixes every environment override, e.g. KANBANBAR_LOG_LEVEL.
const EnvPrefix = "KANBANBAR"

// aliases are the unprefixed variable names also honored for a key.
var aliases = map[string]string{
	"github.client_id":     "GITHUB_CLIENT_ID",
	"github.client_secret": "GITHUB_CLIENT_SECRET",
}

// DefaultConfig returns default settings.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			GraphQLURL:   "https://api.github.com/graphql",
			RESTURL:      "https://api.github.com",
			CallbackAddr: "127.0.0.1:0",
		},
		Board: BoardConfig{
			Filter: "all",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(Dir(), "kanbanbar.log"),
		},
	}
}

// Dir returns the directory holding the config file.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kanbanbar"
	}
	return filepath.Join(home, ".kanbanbar")
}

// DefaultPath returns the path to the config file.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// ErrUnknownKey is returned by Set for a key the config does not have.
var ErrUnknownKey = errors.New("unknown config key")

// Load reads the config at path (DefaultPath when empty), then .env from the working
// directory, then the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	v, err := readFile(path)
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, err
		}
	}

	if err := applyDotEnv(v, ".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// readFile layers the file at path over the defaults, without environment overrides.
func readFile(path string) (*viper.Viper, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	return v, nil
}

// Keys lists every settable key, e.g. "board.project".
func Keys() []string {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Set stores value under key in the file at path and returns the file's new contents.
// Environment and .env overrides are not written to the file.
func Set(path, key, value string) (*Config, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(Keys(), key) {
		return nil, fmt.Errorf("%w %q", ErrUnknownKey, key)
	}

	v, err := readFile(path)
	if err != nil {
		return nil, err
	}
	v.Set(key, value)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GitHub.Timeout < 0 {
		return errors.New("github.timeout must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Redacted returns the config as YAML with the client secret masked.
func (c *Config) Redacted() (string, error) {
	out := *c
	if out.GitHub.ClientSecret != "" {
		out.GitHub.ClientSecret = "********"
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// Save writes cfg to path (DefaultPath when empty). The file may hold the client secret,
// so it is readable by the owner only.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("github.client_id", cfg.GitHub.ClientID)
	v.SetDefault("github.client_secret", cfg.GitHub.ClientSecret)
	v.SetDefault("github.graphql_url", cfg.GitHub.GraphQLURL)
	v.SetDefault("github.rest_url", cfg.GitHub.RESTURL)
	v.SetDefault("github.timeout", cfg.GitHub.Timeout)
	v.SetDefault("github.callback_addr", cfg.GitHub.CallbackAddr)
	v.SetDefault("board.project", cfg.Board.Project)
	v.SetDefault("board.filter", cfg.Board.Filter)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
}

// applyDotEnv copies recognized variables from a dotenv file into v. Variables already
// present in the process environment win.
func applyDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		names := []string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if alias, ok := aliases[key]; ok {
			names = append(names, alias)
		}
		for _, name := range names {
			if _, inEnv := os.LookupEnv(name); inEnv {
				break
			}
			// dotenv keys are case-insensitive in viper
			if env.IsSet(name) {
				v.Set(key, env.GetString(name))
				break
			}
		}
	}
	return nil
}
