// Package config loads timetick settings from the user's config file, from
// TIMETICK_* environment variables and from command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "TIMETICK"
	fileName  = "timetick.yaml"
)

// Config holds the effective settings of one invocation.
type Config struct {
	APIURL    string `mapstructure:"api_url"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token_file"`
	DataDir   string `mapstructure:"data_dir"`

	ProjectsRefresh    time.Duration `mapstructure:"projects_refresh"`
	EntriesRefresh     time.Duration `mapstructure:"entries_refresh"`
	LeaderboardRefresh time.Duration `mapstructure:"leaderboard_refresh"`
	PageLimit          int           `mapstructure:"page_limit"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	Tick               time.Duration `mapstructure:"tick"`

	DevserverAddr  string `mapstructure:"devserver_addr"`
	DevserverToken string `mapstructure:"devserver_token"`

	// File is the config file that was read, or written with defaults.
	File string `mapstructure:"-"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8080/api/v1")
	v.SetDefault("token", "")
	v.SetDefault("token_file", "")
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("projects_refresh", 5*time.Minute)
	v.SetDefault("entries_refresh", 2*time.Minute)
	v.SetDefault("leaderboard_refresh", 30*time.Second)
	v.SetDefault("page_limit", 50)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("tick", time.Second)
	v.SetDefault("devserver_addr", ":8080")
	v.SetDefault("devserver_token", "")
}

// writeDefaults creates the config file from the defaults alone, so values
// taken from the environment or flags are never persisted.
func writeDefaults(path string) error {
	d := viper.New()
	d.SetConfigType("yaml")
	defaults(d)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := d.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/timetick/timetick.yaml, falling back to the
// platform's usual config directory.
func DefaultPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting user home directory: %w", err)
		}
		if runtime.GOOS == "windows" {
			configHome = filepath.Join(homeDir, "AppData", "Roaming")
		} else {
			configHome = filepath.Join(homeDir, ".config")
		}
	}
	return filepath.Join(configHome, "timetick", fileName), nil
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".local", "share", "timetick")
}

// Load reads path, or DefaultPath when path is empty. A missing file is
// created with the default values. Flags in flags that name a config key
// (dashes for underscores, as in --api-url) override everything else when set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	defaults(v)

	if flags != nil {
		for _, key := range v.AllKeys() {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := writeDefaults(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.File = path
	return cfg, nil
}

// Validate checks the settings and reads the token file, if any.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an http(s) URL", c.APIURL)
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	if c.Token != "" && c.TokenFile != "" {
		return fmt.Errorf("cannot specify both token and token_file")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.PageLimit <= 0 {
		return fmt.Errorf("page_limit must be positive, got %d", c.PageLimit)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	for name, d := range map[string]time.Duration{
		"projects_refresh":    c.ProjectsRefresh,
		"entries_refresh":     c.EntriesRefresh,
		"leaderboard_refresh": c.LeaderboardRefresh,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	return nil
}

// DBPath is the local store's database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "database.db")
}

const redacted = "********"

// YAML renders the settings for display. Secrets are redacted.
func (c *Config) YAML() ([]byte, error) {
	token := c.Token
	if token != "" {
		token = redacted
	}
	devToken := c.DevserverToken
	if devToken != "" {
		devToken = redacted
	}

	// durations as text rather than nanoseconds
	doc := struct {
		APIURL             string `yaml:"api_url"`
		Token              string `yaml:"token,omitempty"`
		TokenFile          string `yaml:"token_file,omitempty"`
		DataDir            string `yaml:"data_dir"`
		ProjectsRefresh    string `yaml:"projects_refresh"`
		EntriesRefresh     string `yaml:"entries_refresh"`
		LeaderboardRefresh string `yaml:"leaderboard_refresh"`
		PageLimit          int    `yaml:"page_limit"`
		HTTPTimeout        string `yaml:"http_timeout"`
		Tick               string `yaml:"tick"`
		DevserverAddr      string `yaml:"devserver_addr"`
		DevserverToken     string `yaml:"devserver_token,omitempty"`
	}{
		APIURL:             c.APIURL,
		Token:              token,
		TokenFile:          c.TokenFile,
		DataDir:            c.DataDir,
		ProjectsRefresh:    c.ProjectsRefresh.String(),
		EntriesRefresh:     c.EntriesRefresh.String(),
		LeaderboardRefresh: c.LeaderboardRefresh.String(),
		PageLimit:          c.PageLimit,
		HTTPTimeout:        c.HTTPTimeout.String(),
		Tick:               c.Tick.String(),
		DevserverAddr:      c.DevserverAddr,
		DevserverToken:     devToken,
	}
	return yaml.Marshal(doc)
}
