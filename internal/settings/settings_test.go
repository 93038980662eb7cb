package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemascope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", s.Log.Level)
	assert.Equal(t, "json", s.Log.Format)
	assert.Equal(t, DefaultFetchTimeout, s.Fetch.Timeout)
	assert.Equal(t, "public", s.Fetch.Schema)
	assert.Equal(t, 5*time.Second, s.Notification.TTL)
	assert.Equal(t, DefaultRulesPath, s.Rules.Path)
	assert.Equal(t, ":8080", s.HTTP.Addr)
	assert.Equal(t, 0, s.Browser.DbIndex)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
log:
  level: debug
  format: console
fetch:
  timeout: 2s
rules:
  path: /etc/schemascope/rules.yaml
browser:
  db_index: 1
  table: Users
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "console", s.Log.Format)
	assert.Equal(t, 2*time.Second, s.Fetch.Timeout)
	assert.Equal(t, DefaultTTL, s.Notification.TTL, "untouched keys keep defaults")
	assert.Equal(t, "/etc/schemascope/rules.yaml", s.Rules.Path)
	assert.Equal(t, 1, s.Browser.DbIndex)
	assert.Equal(t, "Users", s.Browser.Table)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeSettings(t, "http:\n  addr: \":9000\"\nfetch:\n  timeout: 2s\n")
	t.Setenv("SCHEMASCOPE_HTTP__ADDR", "127.0.0.1:7000")
	t.Setenv("SCHEMASCOPE_NOTIFICATION__TTL", "1500ms")
	t.Setenv("SCHEMASCOPE_STORE__USE_SSL", "true")
	t.Setenv("SCHEMASCOPE_STORE__ACCESS_KEY", "minioadmin")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", s.HTTP.Addr)
	assert.Equal(t, 2*time.Second, s.Fetch.Timeout)
	assert.Equal(t, 1500*time.Millisecond, s.Notification.TTL)
	assert.True(t, s.Store.UseSSL)
	assert.Equal(t, "minioadmin", s.Store.AccessKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad format", "log:\n  format: xml\n"},
		{"zero timeout", "fetch:\n  timeout: 0s\n"},
		{"negative index", "browser:\n  db_index: -1\n"},
		{"s3 without endpoint", "rules:\n  path: s3://config/rules.yaml\n"},
		{"bad yaml", "log: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tt.body))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "store.access_key", envKey("SCHEMASCOPE_STORE__ACCESS_KEY"))
	assert.Equal(t, "fetch.timeout", envKey("SCHEMASCOPE_FETCH__TIMEOUT"))
}

func TestSettings_Mappings(t *testing.T) {
	s := &Settings{
		Log:   Log{Level: "warn", Format: "console"},
		Store: Store{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", UseSSL: true, Region: "eu"},
	}

	lc := s.LoggerConfig()
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "console", lc.Format)

	sc := s.StoreConfig()
	assert.Equal(t, "localhost:9000", sc.Endpoint)
	assert.Equal(t, "a", sc.AccessKey)
	assert.True(t, sc.UseSSL)
	assert.Equal(t, "eu", sc.Region)
}
