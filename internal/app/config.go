package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/florianilch/rabota-client/internal/callback"
	"github.com/florianilch/rabota-client/internal/tokenstore"
	"github.com/florianilch/rabota-client/pkg/rabota"
)

// EnvPrefix prefixes every configuration environment variable.
// Nested keys use a double underscore, e.g. RABOTA_AUTH__STORAGE.
const EnvPrefix = "RABOTA_"

// TokenStorageType selects where the access token is persisted.
type TokenStorageType string

const (
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
	TokenStorageTypeEnv     TokenStorageType = "env"
)

// Config is the complete client configuration.
type Config struct {
	AppID   string        `koanf:"app_id" validate:"required"`
	Secret  string        `koanf:"secret" validate:"required"`
	Sandbox bool          `koanf:"sandbox"`
	Host    string        `koanf:"host" validate:"omitempty,url"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	Debug   bool          `koanf:"debug"`

	Auth AuthConfig `koanf:"auth"`
	Log  LogConfig  `koanf:"log"`
}

// AuthConfig configures the authorization flow and token persistence.
type AuthConfig struct {
	Storage        TokenStorageType `koanf:"storage" validate:"oneof=file keyring env"`
	File           string           `koanf:"file" validate:"required_if=Storage file"`
	KeyringService string           `koanf:"keyring_service" validate:"required_if=Storage keyring"`
	KeyringUser    string           `koanf:"keyring_user" validate:"required_if=Storage keyring"`
	EnvVar         string           `koanf:"env_var" validate:"required_if=Storage env"`
	EnvExpiryVar   string           `koanf:"env_expiry_var"`

	RedirectURL  string   `koanf:"redirect_url" validate:"omitempty,url"`
	Display      string   `koanf:"display" validate:"oneof=page popup"`
	Scopes       []string `koanf:"scopes" validate:"dive,oneof=profile vacancies resume"`
	CallbackAddr string   `koanf:"callback_addr" validate:"hostname_port"`
	CallbackPath string   `koanf:"callback_path" validate:"startswith=/"`
}

// LogConfig configures the observability layer.
type LogConfig struct {
	Level        string `koanf:"level"`
	Format       string `koanf:"format" validate:"oneof=text json otel"`
	OTLPProtocol string `koanf:"otlp_protocol" validate:"oneof=stdout http grpc"`
	OTLPEndpoint string `koanf:"otlp_endpoint" validate:"omitempty,url"`
}

// SlogLevel parses Level, accepting any case.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}

// DefaultConfigPath returns the config file used when none is given.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".rabota"
	}
	return filepath.Join(dir, "rabota")
}

func defaults() map[string]any {
	return map[string]any{
		"timeout":              "30s",
		"auth.storage":         string(TokenStorageTypeFile),
		"auth.file":            filepath.Join(configDir(), "token.json"),
		"auth.keyring_service": "rabota",
		"auth.keyring_user":    "default",
		"auth.env_var":         EnvPrefix + "TOKEN",
		"auth.env_expiry_var":  EnvPrefix + "TOKEN_EXPIRY",
		"auth.display":         rabota.DisplayPage,
		"auth.scopes":          rabota.DefaultScopes(),
		"auth.callback_addr":   "127.0.0.1:8085",
		"auth.callback_path":   callback.DefaultPath,
		"log.level":            "info",
		"log.format":           "text",
		"log.otlp_protocol":    "stdout",
	}
}

// LoadConfig layers defaults, the TOML file at path, RABOTA_* environment
// variables and overrides, in that order, and validates the result.
// A missing file is only an error when required is set.
func LoadConfig(path string, required bool, overrides map[string]any, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if environ == nil {
		environ = os.Environ
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// transformEnv maps RABOTA_AUTH__STORAGE to auth.storage and splits list values.
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if key == "auth.scopes" {
		var scopes []string
		for s := range strings.SplitSeq(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		return key, scopes
	}

	return key, value
}

// Validate checks the configuration for missing or malformed values.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// NewTokenStore creates the token store selected by Storage.
func (a AuthConfig) NewTokenStore() (tokenstore.Store, error) {
	switch a.Storage {
	case TokenStorageTypeFile:
		return tokenstore.NewFile(a.File)
	case TokenStorageTypeKeyring:
		return tokenstore.NewKeyring(a.KeyringService, a.KeyringUser)
	case TokenStorageTypeEnv:
		return tokenstore.NewEnv(a.EnvVar, a.EnvExpiryVar, os.LookupEnv)
	default:
		return nil, fmt.Errorf("unknown token storage type %q", a.Storage)
	}
}

// NewClient creates an API client from the configuration.
func (c *Config) NewClient(logger *slog.Logger) (*rabota.Client, error) {
	opts := []rabota.Option{
		rabota.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
	}
	if c.Debug {
		opts = append(opts, rabota.WithDebug())
	}
	if logger != nil {
		opts = append(opts, rabota.WithLogger(logger))
	}
	switch {
	case c.Host != "":
		opts = append(opts, rabota.WithHost(c.Host))
	case c.Sandbox:
		opts = append(opts, rabota.WithSandbox())
	}

	return rabota.New(c.AppID, c.Secret, opts...)
}
