// Package config loads runtime settings from the environment and optional
// dotenv files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	auth "github.com/salesreport/go-auth"
)

// Config holds runtime configuration for the service.
type Config struct {
	JWTSecret        string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiresIn     int    `envconfig:"JWT_EXPIRES_IN" default:"3600"`
	JWTSigningMethod string `envconfig:"JWT_SIGNING_METHOD" default:"HS256"`
	JWTIssuer        string `envconfig:"JWT_ISSUER" default:""`
	JWTAudience      string `envconfig:"JWT_AUDIENCE" default:""`

	TokenLookup string `envconfig:"AUTH_TOKEN_LOOKUP" default:"header:Authorization"`
	AuthScheme  string `envconfig:"AUTH_SCHEME" default:"Bearer"`
	ContextKey  string `envconfig:"AUTH_CONTEXT_KEY" default:"principal"`
	BcryptCost  int    `envconfig:"BCRYPT_COST" default:"10"`

	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	LoginRateLimit   int           `envconfig:"LOGIN_RATE_LIMIT" default:"20"`

	StoreConfig

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
}

// StoreConfig selects the principal store. It loads on its own for
// commands that never touch tokens.
type StoreConfig struct {
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:salesauth.db?cache=shared"`
	DBDebug     bool   `envconfig:"DB_DEBUG" default:"false"`
}

var _ auth.Config = (*Config)(nil)

// Load reads dotenv files that exist, then the environment. Values already
// set in the environment win over dotenv entries.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadStore reads only the store settings.
func LoadStore(envFiles ...string) (*StoreConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var cfg StoreConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must not be empty")
	}
	return &cfg, nil
}

func loadEnvFiles(envFiles []string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	present := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must be provided"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	switch c.JWTSigningMethod {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_SIGNING_METHOD %q is not an HMAC method", c.JWTSigningMethod))
	}
	if c.BcryptCost < auth.DefaultPasswordCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least %d", auth.DefaultPasswordCost))
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must not be negative"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL must not be empty"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or console", c.LogFormat))
	}

	return errors.Join(errs...)
}

func (c *Config) GetSigningKey() string    { return c.JWTSecret }
func (c *Config) GetSigningMethod() string { return c.JWTSigningMethod }
func (c *Config) GetContextKey() string    { return c.ContextKey }
func (c *Config) GetTokenExpiration() int  { return c.JWTExpiresIn }
func (c *Config) GetTokenLookup() string   { return c.TokenLookup }
func (c *Config) GetAuthScheme() string    { return c.AuthScheme }
func (c *Config) GetIssuer() string        { return c.JWTIssuer }

// GetAudience splits JWT_AUDIENCE on commas.
func (c *Config) GetAudience() []string {
	var out []string
	for _, a := range strings.Split(c.JWTAudience, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// IsDevelopment reports whether debug output is enabled.
func (c *Config) IsDevelopment() bool {
	return c != nil && (c.Debug || c.LogFormat == "console")
}
