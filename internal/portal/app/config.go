package app

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StoreCookie = "cookie"
	StoreRedis  = "redis"
)

type Config struct {
	Env                 string        `env:"ENV"                   envDefault:"dev"  validate:"oneof=dev staging prod"`
	LogLevel            string        `env:"LOG_LEVEL"             envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat           string        `env:"LOG_FORMAT"            envDefault:"json" validate:"oneof=json text"`
	Port                int           `env:"PORT"                  envDefault:"8080" validate:"min=1,max=65535"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	// VerifyAPIURL is the identity service base URL.
	VerifyAPIURL string `env:"VERIFY_API_URL" validate:"required,url"`

	// UpstreamURL is the application server behind the gateway. Optional.
	UpstreamURL string `env:"APP_UPSTREAM_URL" validate:"omitempty,url"`

	// SessionSecret keys the cookie store. Generated per process in dev
	// when unset, which signs everyone out on restart. Unused by redis.
	SessionSecret     string `env:"SESSION_SECRET"      validate:"omitempty,min=32"`
	SessionStore      string `env:"SESSION_STORE"       envDefault:"cookie"               validate:"oneof=cookie redis"`
	SessionCookieName string `env:"SESSION_COOKIE_NAME" envDefault:"portal.session-token" validate:"required"`

	Redis RedisConfig `envPrefix:"REDIS_"`

	Locales       []string `env:"LOCALES"        envDefault:"en,fr,ar" envSeparator:"," validate:"min=1,dive,required"`
	DefaultLocale string   `env:"DEFAULT_LOCALE" envDefault:"en"       validate:"required"`

	SignInPath string `env:"SIGNIN_PATH" envDefault:"/auth/signin" validate:"startswith=/"`

	RemoteTokenValidation bool          `env:"REMOTE_TOKEN_VALIDATION" envDefault:"true"`
	LegacyCookieAuth      bool          `env:"LEGACY_COOKIE_AUTH"      envDefault:"true"`
	ProbeInterval         time.Duration `env:"PROBE_INTERVAL"          envDefault:"30s"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0" validate:"min=0"`
}

// Secure reports whether cookies must carry the Secure attribute.
func (c Config) Secure() bool {
	return c.Env == "prod"
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) sanitize() {
	for i, l := range c.Locales {
		c.Locales[i] = strings.TrimSpace(l)
	}
	c.DefaultLocale = strings.TrimSpace(c.DefaultLocale)
	c.VerifyAPIURL = strings.TrimSuffix(c.VerifyAPIURL, "/")
	if c.ShutdownGracePeriod <= 0 {
		c.ShutdownGracePeriod = 10 * time.Second
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 30 * time.Second
	}
}

// Validate checks field constraints plus the rules that span fields.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.SessionStore == StoreCookie && c.SessionSecret == "" && c.Env != "dev" {
		return errors.New("invalid config: SESSION_SECRET is required for the cookie store outside dev")
	}
	if !slices.Contains(c.Locales, c.DefaultLocale) {
		return fmt.Errorf("invalid config: DEFAULT_LOCALE %q is not in LOCALES", c.DefaultLocale)
	}
	return nil
}
