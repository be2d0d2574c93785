package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/steveljko/timetick/internal/config"
)

func TestLoadDefaultsCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetick", "timetick.yaml")

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8080/api/v1", cfg.APIURL)
	assert.Equal(t, 5*time.Minute, cfg.ProjectsRefresh)
	assert.Equal(t, 2*time.Minute, cfg.EntriesRefresh)
	assert.Equal(t, 30*time.Second, cfg.LeaderboardRefresh)
	assert.Equal(t, 50, cfg.PageLimit)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.Tick)
	assert.Equal(t, ":8080", cfg.DevserverAddr)
	assert.Equal(t, path, cfg.File)
	assert.FileExists(t, path)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetick.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://timetick.example.com/api/v1
token: from-file
page_limit: 20
entries_refresh: 45s
`), 0o600))

	t.Setenv("TIMETICK_PAGE_LIMIT", "10")
	t.Setenv("TIMETICK_TICK", "250ms")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--api-url", "https://override.example.com/api/v1/"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://override.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, "from-file", cfg.Token)
	assert.Equal(t, 10, cfg.PageLimit)
	assert.Equal(t, 45*time.Second, cfg.EntriesRefresh)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick)
}

func TestCreatedFileHoldsOnlyDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetick.yaml")
	t.Setenv("TIMETICK_TOKEN", "env-secret-token")
	t.Setenv("TIMETICK_PAGE_LIMIT", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	require.NoError(t, flags.Parse([]string{"--api-url", "https://flag.example.com/api/v1"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "env-secret-token", cfg.Token)
	assert.Equal(t, 7, cfg.PageLimit)
	assert.Equal(t, "https://flag.example.com/api/v1", cfg.APIURL)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "env-secret-token")
	assert.NotContains(t, string(data), "flag.example.com")

	var written map[string]any
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, "", written["token"])
	assert.Equal(t, 50, written["page_limit"])
	assert.Equal(t, "http://localhost:8080/api/v1", written["api_url"])
}

func TestUnsetFlagDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetick.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example.com\n"), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "http://flag-default", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.APIURL)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			APIURL:      "http://localhost:8080/api/v1",
			DataDir:     "/tmp/timetick",
			PageLimit:   50,
			HTTPTimeout: time.Second,
			Tick:        time.Second,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"relative url", func(c *config.Config) { c.APIURL = "/api/v1" }},
		{"ftp url", func(c *config.Config) { c.APIURL = "ftp://example.com" }},
		{"token and token file", func(c *config.Config) { c.Token, c.TokenFile = "a", "b" }},
		{"no data dir", func(c *config.Config) { c.DataDir = "" }},
		{"zero page limit", func(c *config.Config) { c.PageLimit = 0 }},
		{"zero timeout", func(c *config.Config) { c.HTTPTimeout = 0 }},
		{"zero tick", func(c *config.Config) { c.Tick = 0 }},
		{"negative refresh", func(c *config.Config) { c.EntriesRefresh = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestYAMLRedactsSecrets(t *testing.T) {
	cfg := &config.Config{
		APIURL:         "http://localhost:8080/api/v1",
		Token:          "secret-token",
		DataDir:        "/data",
		PageLimit:      50,
		HTTPTimeout:    10 * time.Second,
		Tick:           time.Second,
		DevserverToken: "dev-secret",
	}
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret-token")
	assert.NotContains(t, string(out), "dev-secret")

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "********", doc["token"])
	assert.Equal(t, "10s", doc["http_timeout"])
	assert.Equal(t, 50, doc["page_limit"])
}

func TestDBPath(t *testing.T) {
	cfg := &config.Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "database.db"), cfg.DBPath())
}
