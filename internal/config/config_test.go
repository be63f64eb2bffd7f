package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, 3, cfg.Fetcher.MaxAttempts)
	require.Equal(t, time.Second, cfg.Fetcher.BaseBackoff)
	require.Equal(t, 24*time.Hour, cfg.Cache.MaxBackoff)
	require.Equal(t, 5*time.Minute, cfg.HTTPCache.MaxAge)
	require.Equal(t, "http", cfg.Fetcher.Engine)
	require.True(t, cfg.Fetcher.Captcha.AutoSolve)
	require.Equal(t, 45*time.Second, cfg.Fetcher.Captcha.Timeout)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
upstream:
  urls:
    - ${TEST_DEALER_URL}
cache:
  ttl: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("TEST_DEALER_URL", "https://cars.example.org/used")
	t.Setenv("CACHE_MAX_BACKOFF", "1h")
	t.Setenv("PORT", "9090")
	t.Setenv("TWOCAPTCHA_API_KEY", "captcha-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, []string{"https://cars.example.org/used"}, cfg.Upstream.URLs)
	require.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	require.Equal(t, time.Hour, cfg.Cache.MaxBackoff)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "captcha-key", cfg.Fetcher.Captcha.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Fetcher.Engine = "carrier-pigeon"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Query.DefaultPerPage = 500
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fetcher.Engine = "firecrawl"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fetcher.Engine = "firecrawl"
	cfg.Fetcher.Firecrawl.APIKey = "fc-test"
	require.NoError(t, cfg.Validate())
	cfg.Upstream.Method = "POST"
	require.Error(t, cfg.Validate())
}

func TestExpandEnvVarsKeepsUnknown(t *testing.T) {
	t.Setenv("KNOWN_VAR", "value")
	require.Equal(t, "value ${UNKNOWN_VAR_XYZ}", expandEnvVars("${KNOWN_VAR} ${UNKNOWN_VAR_XYZ}"))
}
