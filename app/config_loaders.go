package projecthub

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PROJECTHUB_AUTH_SECRET for auth.secret.
const EnvPrefix = "PROJECTHUB"

type ConfigLoader interface {
	Load() (*Config, error)
}

// FileConfigLoader loads the configuration from an optional yaml file and environment variables.
// Variables found in the dot env files are exported before the environment is read,
// without overriding variables that are already set.
type FileConfigLoader struct {
	// Name is the config file name without extension. The default is config.
	Name string
	// Paths are searched for the config file. The default is the working directory.
	Paths []string
	// EnvFiles are loaded with godotenv. Missing files are skipped. The default is .env.
	EnvFiles []string
}

func (l *FileConfigLoader) Load() (*Config, error) {
	envFiles := l.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("godotenv.Load %s: %w", f, err)
		}
	}

	v := viper.New()
	name := l.Name
	if name == "" {
		name = "config"
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	paths := l.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return unmarshalConfig(v)
}

// DefaultConfigLoader returns the defaults without reading files or the environment.
type DefaultConfigLoader struct{}

func (l *DefaultConfigLoader) Load() (*Config, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, err
	}
	return unmarshalConfig(v)
}

// LoadConfig loads config.yaml from the working directory, .env and the environment.
func LoadConfig() (*Config, error) {
	return (&FileConfigLoader{}).Load()
}

// every key must have a default for AutomaticEnv to pick it up on Unmarshal
func setDefaults(v *viper.Viper) error {
	// generate a random secret key
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}

	v.SetDefault("port", 8080)
	v.SetDefault("hostname", "0.0.0.0")
	v.SetDefault("mode", string(DevMode))
	v.SetDefault("log_level", "info")
	v.SetDefault("auth.secret", base64.StdEncoding.EncodeToString(secret))
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.blacklist_prune_interval", "1h")
	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("sqlite.file", "./projecthub.db")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("tls.crt", "")
	v.SetDefault("tls.key", "")
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.max_message_size", 64<<10)
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "10s")
	v.SetDefault("static.dir", "")
	return nil
}

func unmarshalConfig(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}
