package projecthub

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config, err := (&DefaultConfigLoader{}).Load()
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, DevMode, config.Mode)
	assert.Equal(t, slog.LevelInfo, config.LogLevel)
	assert.Len(t, config.Auth.Secret, 32)
	assert.Equal(t, 24*time.Hour, config.Auth.TokenTTL)
	assert.Equal(t, []string{"*"}, config.AllowedOrigins)
	assert.Equal(t, 60*time.Second, config.WS.PongWait)
	assert.Equal(t, 256, config.WSConfig().SendBuffer)
	assert.Nil(t, tlsConfig(config.Mode))
}

func TestFileConfigLoader(t *testing.T) {
	dir := t.TempDir()
	yaml := `
port: 9090
log_level: debug
sqlite:
  file: /tmp/hub.db
ws:
  send_buffer: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PROJECTHUB_WS_PONG_WAIT=30s\n"), 0o600))

	secret := base64.StdEncoding.EncodeToString([]byte("super secret"))
	t.Setenv("PROJECTHUB_AUTH_SECRET", secret)
	t.Setenv("PROJECTHUB_MODE", "prod")
	t.Setenv("PROJECTHUB_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	// env wins over the file
	t.Setenv("PROJECTHUB_PORT", "9191")
	// registered so t restores it after godotenv exports it
	t.Setenv("PROJECTHUB_WS_PONG_WAIT", "")
	os.Unsetenv("PROJECTHUB_WS_PONG_WAIT")

	config, err := (&FileConfigLoader{Paths: []string{dir}, EnvFiles: []string{envFile}}).Load()
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, 9191, config.Port)
	assert.Equal(t, ProdMode, config.Mode)
	assert.Equal(t, slog.LevelDebug, config.LogLevel)
	assert.Equal(t, []byte("super secret"), []byte(config.Auth.Secret))
	assert.Equal(t, "/tmp/hub.db", config.SQLite.File)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, config.AllowedOrigins)
	assert.Equal(t, 8, config.WS.SendBuffer)
	assert.Equal(t, 30*time.Second, config.WS.PongWait)
	assert.NotNil(t, tlsConfig(config.Mode))
}

func TestFileConfigLoaderWithoutFiles(t *testing.T) {
	config, err := (&FileConfigLoader{Paths: []string{t.TempDir()}, EnvFiles: []string{filepath.Join(t.TempDir(), ".env")}}).Load()
	require.NoError(t, err)
	assert.Equal(t, "./projecthub.db", config.SQLite.File)
}

func TestConfigValidation(t *testing.T) {
	config, err := (&DefaultConfigLoader{}).Load()
	require.NoError(t, err)
	config.Port = 70000
	config.Mode = "staging"
	config.TLS.Crt = "server.crt"
	config.WS.SendBuffer = 0

	err = config.Validate()
	require.Error(t, err)
	msg := FormatValidationErrors(err)
	assert.Contains(t, msg, "port must be a valid port number")
	assert.Contains(t, msg, "mode must be one of [dev prod]")
	assert.Contains(t, msg, "tls.key is required when Crt is set")
	assert.Contains(t, msg, "ws.send_buffer must be greater than 0")
}
