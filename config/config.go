package config

import (
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces environment overrides, APPROVALS_AUTH__SIGNING_KEY
// maps to auth.signing_key
const EnvPrefix = "APPROVALS_"

// TextCodeInvalidConfig marks configuration that could not be loaded or validated
const TextCodeInvalidConfig = "INVALID_CONFIG"

// DevelopmentSigningKey is used when no key is configured
const DevelopmentSigningKey = "local-development-secret-key"

type ServerConfig struct {
	Address        string   `koanf:"address"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type AuthConfig struct {
	SigningKey      string   `koanf:"signing_key"`
	Issuer          string   `koanf:"issuer"`
	Audience        []string `koanf:"audience"`
	TokenExpiration int      `koanf:"token_expiration"`
	BcryptCost      int      `koanf:"bcrypt_cost"`
}

type PersistenceConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

type EventsConfig struct {
	Buffer int  `koanf:"buffer"`
	Scoped bool `koanf:"scoped"`
}

type TasksConfig struct {
	StrictTerminal bool `koanf:"strict_terminal"`
}

type SeedConfig struct {
	Enabled     bool `koanf:"enabled"`
	SampleTasks bool `koanf:"sample_tasks"`
}

// Config is the resolved server configuration
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Auth        AuthConfig        `koanf:"auth"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Logging     LoggingConfig     `koanf:"logging"`
	Events      EventsConfig      `koanf:"events"`
	Tasks       TasksConfig       `koanf:"tasks"`
	Seed        SeedConfig        `koanf:"seed"`
}

// Defaults returns the base layer every other source overrides
func Defaults() map[string]any {
	return map[string]any{
		"server.address":         ":4000",
		"server.allowed_origins": []string{"http://localhost:3000", "http://localhost:3001"},
		"auth.signing_key":       DevelopmentSigningKey,
		"auth.issuer":            "go-approvals",
		"auth.audience":          []string{},
		"auth.token_expiration":  24,
		"auth.bcrypt_cost":       10,
		"persistence.driver":     "memory",
		"persistence.dsn":        "file:approvals.db?cache=shared",
		"logging.level":          "info",
		"logging.format":         "text",
		"logging.file":           "",
		"logging.max_size":       10,
		"logging.max_backups":    3,
		"logging.max_age":        28,
		"logging.compress":       true,
		"events.buffer":          64,
		"events.scoped":          false,
		"tasks.strict_terminal":  false,
		"seed.enabled":           true,
		"seed.sample_tasks":      true,
	}
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	Args    []string
	EnvFile string
}

// Load layers defaults, an optional YAML file, .env, environment variables
// and command line flags, in that order.
func Load(opts LoadOptions) (*Config, error) {
	fs := NewFlagSet()
	if err := fs.Parse(opts.Args); err != nil {
		return nil, configError(err, "invalid command line arguments")
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, configError(err, "failed to load defaults")
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, configError(err, "failed to load config file").WithMetadata(map[string]any{"path": path})
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !goerrors.Is(err, os.ErrNotExist) {
		return nil, configError(err, "failed to load env file").WithMetadata(map[string]any{"path": envFile})
	}

	if err := k.Load(confmap.Provider(compatEnv(os.LookupEnv), "."), nil); err != nil {
		return nil, configError(err, "failed to load environment")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, configError(err, "failed to load environment")
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, configError(err, "failed to load flags")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, configError(err, "failed to decode configuration")
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewFlagSet declares the command line flags, names match config keys
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("approvals", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("server.address", "", "listen address")
	fs.String("persistence.driver", "", "memory or sqlite")
	fs.String("persistence.dsn", "", "sqlite data source name")
	fs.String("logging.level", "", "debug, info, warn or error")
	fs.String("logging.format", "", "text or json")
	fs.String("logging.file", "", "rotated log file, empty logs to stdout only")
	fs.Bool("seed.enabled", true, "seed development accounts")
	fs.Bool("seed.sample_tasks", true, "seed sample tasks")
	fs.Bool("events.scoped", false, "scope events to the receiving session")
	fs.Bool("tasks.strict_terminal", false, "refuse repeated approve/reject on decided tasks")
	return fs
}

func configError(err error, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "config: "+message).
		WithTextCode(TextCodeInvalidConfig)
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// compatEnv honors the variables the original server read
func compatEnv(lookup func(string) (string, bool)) map[string]any {
	out := map[string]any{}
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		out["auth.signing_key"] = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		out["server.address"] = ":" + strings.TrimPrefix(v, ":")
	}
	return out
}

func (c *Config) normalize() {
	c.Server.AllowedOrigins = splitList(c.Server.AllowedOrigins)
	c.Auth.Audience = splitList(c.Auth.Audience)
	c.Persistence.Driver = strings.ToLower(strings.TrimSpace(c.Persistence.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the resolved values
func (c Config) Validate() error {
	err := validation.Errors{
		"server":      validation.ValidateStruct(&c.Server, validation.Field(&c.Server.Address, validation.Required)),
		"auth":        c.Auth.validate(),
		"persistence": c.Persistence.validate(),
		"logging":     c.Logging.validate(),
		"events":      validation.ValidateStruct(&c.Events, validation.Field(&c.Events.Buffer, validation.Min(1))),
	}.Filter()
	if err != nil {
		return configError(err, "invalid configuration")
	}
	return nil
}

func (a AuthConfig) validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required),
		validation.Field(&a.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&a.BcryptCost, validation.Min(4), validation.Max(31)),
	)
}

func (p PersistenceConfig) validate() error {
	dsnRules := []validation.Rule{}
	if p.Driver == "sqlite" {
		dsnRules = append(dsnRules, validation.Required)
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In("memory", "sqlite")),
		validation.Field(&p.DSN, dsnRules...),
	)
}

func (l LoggingConfig) validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

// UsingDevelopmentKey reports whether the built in signing key is active
func (c Config) UsingDevelopmentKey() bool {
	return c.Auth.SigningKey == DevelopmentSigningKey
}

func (c Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c Config) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

func (c Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c Config) GetBcryptCost() int {
	return c.Auth.BcryptCost
}
