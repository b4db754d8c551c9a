package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	DBDSN           string        `envconfig:"DB_DSN"`
	JWTIssuer       string        `envconfig:"JWT_ISSUER" default:"tradelab"`
	JWTSecret       string        `envconfig:"JWT_SECRET"`
	JWTTTL          time.Duration `envconfig:"JWT_TTL" default:"24h"`
	WebSocketOrigin string        `envconfig:"WS_ORIGIN" default:"*"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text"`

	StartingBalance string `envconfig:"STARTING_BALANCE" default:"150000"`

	CodeTTL        time.Duration `envconfig:"VERIFICATION_CODE_TTL" default:"180s"`
	ResendInterval time.Duration `envconfig:"VERIFICATION_RESEND_INTERVAL" default:"180s"`

	QuoteInterval time.Duration `envconfig:"QUOTE_INTERVAL" default:"1s"`
	WSPingPeriod  time.Duration `envconfig:"WS_PING_PERIOD" default:"30s"`

	AIAPIKey  string `envconfig:"AI_API_KEY"`
	AIBaseURL string `envconfig:"AI_BASE_URL"`
	AIModel   string `envconfig:"AI_MODEL" default:"gpt-4o-mini"`

	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("APP", &c); err != nil {
		return c, err
	}
	if c.DBDSN == "" {
		return c, errors.New("missing required env: APP_DB_DSN")
	}
	if c.JWTSecret == "" {
		return c, errors.New("missing required env: APP_JWT_SECRET")
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warn" && c.LogLevel != "error" {
		return c, errors.New("invalid APP_LOG_LEVEL: use debug, info, warn or error")
	}
	return c, nil
}
