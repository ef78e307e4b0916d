package app_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/rabota-client/internal/app"
	"github.com/florianilch/rabota-client/internal/tokenstore"
	"github.com/florianilch/rabota-client/pkg/rabota"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := app.LoadConfig("", false, nil, environ("RABOTA_APP_ID=42", "RABOTA_SECRET=s"))
	require.NoError(t, err)

	assert.Equal(t, "42", cfg.AppID)
	assert.Equal(t, "s", cfg.Secret)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, app.TokenStorageTypeFile, cfg.Auth.Storage)
	assert.Equal(t, "token.json", filepath.Base(cfg.Auth.File))
	assert.Equal(t, rabota.DisplayPage, cfg.Auth.Display)
	assert.Equal(t, rabota.DefaultScopes(), cfg.Auth.Scopes)
	assert.Equal(t, "/callback", cfg.Auth.CallbackPath)
	assert.Equal(t, "text", cfg.Log.Format)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadConfig_Layering(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
app_id = "from-file"
secret = "file-secret"
sandbox = true
timeout = "5s"

[auth]
storage = "keyring"
scopes = ["profile"]

[log]
level = "debug"
format = "json"
`)

	cfg, err := app.LoadConfig(path, true,
		map[string]any{"log.format": "otel"},
		environ("RABOTA_APP_ID=from-env", "RABOTA_AUTH__SCOPES=profile, resume", "OTHER=ignored"),
	)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AppID, "env overrides file")
	assert.Equal(t, "file-secret", cfg.Secret)
	assert.True(t, cfg.Sandbox)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, app.TokenStorageTypeKeyring, cfg.Auth.Storage)
	assert.Equal(t, []string{"profile", "resume"}, cfg.Auth.Scopes)
	assert.Equal(t, "otel", cfg.Log.Format, "overrides win")

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope.toml")
	env := environ("RABOTA_APP_ID=42", "RABOTA_SECRET=s")

	_, err := app.LoadConfig(missing, false, nil, env)
	require.NoError(t, err)

	_, err = app.LoadConfig(missing, true, nil, env)
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     []string
		wantErr string
	}{
		{name: "missing app id", env: []string{"RABOTA_SECRET=s"}, wantErr: "AppID"},
		{name: "missing secret", env: []string{"RABOTA_APP_ID=1"}, wantErr: "Secret"},
		{name: "unknown storage", env: []string{"RABOTA_APP_ID=1", "RABOTA_SECRET=s", "RABOTA_AUTH__STORAGE=cloud"}, wantErr: "Storage"},
		{name: "unknown scope", env: []string{"RABOTA_APP_ID=1", "RABOTA_SECRET=s", "RABOTA_AUTH__SCOPES=profile,admin"}, wantErr: "Scopes"},
		{name: "bad host", env: []string{"RABOTA_APP_ID=1", "RABOTA_SECRET=s", "RABOTA_HOST=not a url"}, wantErr: "Host"},
		{name: "bad log level", env: []string{"RABOTA_APP_ID=1", "RABOTA_SECRET=s", "RABOTA_LOG__LEVEL=loud"}, wantErr: "log level"},
		{name: "bad log format", env: []string{"RABOTA_APP_ID=1", "RABOTA_SECRET=s", "RABOTA_LOG__FORMAT=xml"}, wantErr: "Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := app.LoadConfig("", false, nil, environ(tt.env...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAuthConfig_NewTokenStore(t *testing.T) {
	t.Parallel()

	file := app.AuthConfig{Storage: app.TokenStorageTypeFile, File: filepath.Join(t.TempDir(), "t.json")}
	store, err := file.NewTokenStore()
	require.NoError(t, err)
	assert.IsType(t, &tokenstore.File{}, store)

	keyring := app.AuthConfig{Storage: app.TokenStorageTypeKeyring, KeyringService: "rabota", KeyringUser: "u"}
	store, err = keyring.NewTokenStore()
	require.NoError(t, err)
	assert.IsType(t, &tokenstore.Keyring{}, store)

	env := app.AuthConfig{Storage: app.TokenStorageTypeEnv, EnvVar: "RABOTA_TOKEN"}
	store, err = env.NewTokenStore()
	require.NoError(t, err)
	assert.IsType(t, &tokenstore.Env{}, store)

	_, err = app.AuthConfig{Storage: "cloud"}.NewTokenStore()
	require.Error(t, err)
}

func TestConfig_NewClient(t *testing.T) {
	t.Parallel()

	cfg := &app.Config{AppID: "42", Secret: "s", Sandbox: true, Timeout: time.Second}
	client, err := cfg.NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, rabota.SandboxHost, client.Host())

	cfg.Host = "https://example.test"
	client, err = cfg.NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", client.Host())

	cfg.Host = ""
	cfg.Sandbox = false
	client, err = cfg.NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, rabota.ProductionHost, client.Host())
}
