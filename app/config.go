package projecthub

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/putto11262002/projecthub/core"
)

type Mode string

const (
	DevMode  Mode = "dev"
	ProdMode Mode = "prod"
)

type Config struct {
	// Port is the Port number to listen on. The default is 8080.
	Port int `validate:"required,port"`
	// Hostname is the Hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	// Mode is either dev or prod. TLS hardening is only applied in prod.
	Mode Mode `validate:"required,oneof=dev prod"`
	// LogLevel is one of debug, info, warn and error. The default is info.
	LogLevel slog.Level `mapstructure:"log_level"`
	Auth     struct {
		// Secret is the Secret key used to sign JWT tokens.
		// The secret must be a base64 encoded string. The default is a random 32 byte string.
		Secret Base64Encoded `validate:"required"`
		// TokenTTL is how long an issued token stays valid.
		TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
		// BlacklistPruneInterval is how often revoked tokens past their expiry are deleted.
		BlacklistPruneInterval time.Duration `mapstructure:"blacklist_prune_interval" validate:"gt=0"`
	}
	// Admin is an optional account created on startup when it does not exist yet.
	Admin struct {
		Username string `validate:"required_with=Password"`
		Password string `validate:"required_with=Username"`
	}
	SQLite struct {
		// File is the path to the SQLite database file.
		File string `validate:"required"`
	}
	// AllowedOrigins is a list of origins that are allowed to call the api and open websockets.
	// The default is ["*"].
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"required,dive,required"`
	TLS            struct {
		Crt string `validate:"required_with=Key"`
		Key string `validate:"required_with=Crt"`
	}
	WS struct {
		SendBuffer     int           `mapstructure:"send_buffer" validate:"gt=0"`
		MaxMessageSize int64         `mapstructure:"max_message_size" validate:"gt=0"`
		PongWait       time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
		WriteWait      time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	}
	// Static is an optional directory holding a single page app served at the root.
	Static struct {
		Dir string
	}
	valid bool
}

type Base64Encoded []byte

func (b *Base64Encoded) UnmarshalText(text []byte) error {
	dec, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("base64 decode: %w", err)
	}
	*b = dec
	return nil
}

func (c *Config) Validate() error {
	if c.valid {
		return nil
	}
	err := validate.Struct(c)
	if err != nil {
		return err
	}
	c.valid = true
	return nil
}

func (c *Config) WSConfig() core.WSConfig {
	return core.WSConfig{
		SendBuffer:     c.WS.SendBuffer,
		MaxMessageSize: c.WS.MaxMessageSize,
		PongWait:       c.WS.PongWait,
		WriteWait:      c.WS.WriteWait,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

// FormatValidationErrors renders validation errors as one translated message per line.
func FormatValidationErrors(err error) string {
	errors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	trans, _ := uniTrans.GetTranslator("en")
	translated := errors.Translate(trans)

	var sb strings.Builder
	for _, key := range slices.Sorted(maps.Keys(translated)) {
		sb.WriteString(translated[key])
		sb.WriteString("\n")
	}
	return sb.String()
}
