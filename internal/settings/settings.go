// Package settings loads process settings for the schema browser.
//
// Precedence, lowest to highest: built-in defaults, the YAML settings file,
// SCHEMASCOPE_ environment variables. Nested keys are separated by a double
// underscore in the environment: SCHEMASCOPE_FETCH__TIMEOUT=10s sets
// fetch.timeout.
package settings

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/filestore"
	"github.com/koustreak/schemascope/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCHEMASCOPE_"

const (
	DefaultHTTPAddr     = ":8080"
	DefaultRulesPath    = "rules.yaml"
	DefaultDBSchema     = "public"
	DefaultFetchTimeout = 30 * time.Second
	DefaultTTL          = 5000 * time.Millisecond
)

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Fetch struct {
	Timeout time.Duration `koanf:"timeout"`

	// Schema is the namespace introspected for postgres:// sources.
	Schema string `koanf:"schema"`
}

type Notification struct {
	TTL time.Duration `koanf:"ttl"`
}

// Rules locates the rules catalog: a file path or s3://bucket/key.
type Rules struct {
	Path string `koanf:"path"`
}

type HTTP struct {
	Addr string `koanf:"addr"`
}

// Store reaches the object store holding an s3:// rules catalog.
type Store struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Region    string `koanf:"region"`
}

// Browser holds the initial view.
type Browser struct {
	DbIndex int    `koanf:"db_index"`
	Table   string `koanf:"table"`
}

// Settings is the full process configuration.
type Settings struct {
	Log          Log          `koanf:"log"`
	Fetch        Fetch        `koanf:"fetch"`
	Notification Notification `koanf:"notification"`
	Rules        Rules        `koanf:"rules"`
	HTTP         HTTP         `koanf:"http"`
	Store        Store        `koanf:"store"`
	Browser      Browser      `koanf:"browser"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.level":        "info",
		"log.format":       "json",
		"fetch.timeout":    DefaultFetchTimeout.String(),
		"fetch.schema":     DefaultDBSchema,
		"notification.ttl": DefaultTTL.String(),
		"rules.path":       DefaultRulesPath,
		"http.addr":        DefaultHTTPAddr,
		"store.endpoint":   "",
		"store.access_key": "",
		"store.secret_key": "",
		"store.use_ssl":    false,
		"store.region":     "",
		"browser.db_index": 0,
		"browser.table":    "",
	}
}

// Load builds Settings. An empty path skips the file layer; a path that
// does not exist is an error.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to load defaults", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("settings file %s", path), err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("error reading settings file %s", path), err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to load env vars", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "unable to decode settings", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// SCHEMASCOPE_STORE__ACCESS_KEY -> store.access_key
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate reports the first invalid field.
func (s *Settings) Validate() error {
	switch s.Log.Format {
	case "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "log.format must be json or console, got %q", s.Log.Format)
	}
	if s.Fetch.Timeout <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "fetch.timeout must be positive")
	}
	if s.Notification.TTL <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "notification.ttl must be positive")
	}
	if s.Browser.DbIndex < 0 {
		return errs.New(errs.ErrKindInvalidInput, "browser.db_index must not be negative")
	}
	if strings.HasPrefix(s.Rules.Path, "s3://") && s.Store.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "store.endpoint is required for an s3:// rules path")
	}
	return nil
}

// LoggerConfig maps the log section onto logger.Config.
func (s *Settings) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = s.Log.Level
	cfg.Format = s.Log.Format
	return cfg
}

// StoreConfig maps the store section onto filestore.Config.
func (s *Settings) StoreConfig() *filestore.Config {
	cfg := filestore.DefaultConfig(s.Store.Endpoint, s.Store.AccessKey, s.Store.SecretKey)
	cfg.UseSSL = s.Store.UseSSL
	cfg.Region = s.Store.Region
	return cfg
}
