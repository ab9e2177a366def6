package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/volunteer-bookings/pkg/core/enums"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	DefaultServerAddr = ":8080"
)

// Closure names a recurring day the organisation is closed, e.g. Christmas Day
type Closure struct {
	Name  string `yaml:"name"`
	RRule string `yaml:"rrule" validate:"required"`
}

// Config represents the application configuration
type Config struct {
	Store       string `yaml:"store" validate:"required,oneof=postgres sqlite"`
	DatabaseURL string `yaml:"databaseURL,omitempty" validate:"required_if=Store postgres"`
	SQLitePath  string `yaml:"sqlitePath,omitempty" validate:"required_if=Store sqlite"`

	// ActingUser attributes CLI operations in the audit log
	ActingUser string `yaml:"actingUser,omitempty"`
	ServerAddr string `yaml:"serverAddr,omitempty"`

	CoordinatorEmail string `yaml:"coordinatorEmail,omitempty" validate:"omitempty,email"`
	GmailUserID      string `yaml:"gmailUserID,omitempty"`
	ScheduleSheetID  string `yaml:"scheduleSheetID,omitempty"`

	Closures       []Closure `yaml:"closures,omitempty" validate:"dive"`
	MaxOccurrences int       `yaml:"maxOccurrences,omitempty" validate:"gte=0"`

	// Enums overrides the built-in value tables, keyed by kind (service_type, ...)
	Enums map[enums.Kind][]enums.Entry `yaml:"enums,omitempty"`
}

// Overrides are read from the environment, including a .env file, and replace the
// matching file values when set
type Overrides struct {
	Store            string `env:"BOOKINGS_STORE"`
	DatabaseURL      string `env:"BOOKINGS_DATABASE_URL"`
	SQLitePath       string `env:"BOOKINGS_SQLITE_PATH"`
	ActingUser       string `env:"BOOKINGS_ACTING_USER"`
	ServerAddr       string `env:"BOOKINGS_SERVER_ADDR"`
	CoordinatorEmail string `env:"BOOKINGS_COORDINATOR_EMAIL"`
}

func (o Overrides) apply(cfg *Config) {
	for dst, v := range map[*string]string{
		&cfg.Store:            o.Store,
		&cfg.DatabaseURL:      o.DatabaseURL,
		&cfg.SQLitePath:       o.SQLitePath,
		&cfg.ActingUser:       o.ActingUser,
		&cfg.ServerAddr:       o.ServerAddr,
		&cfg.CoordinatorEmail: o.CoordinatorEmail,
	} {
		if v != "" {
			*dst = v
		}
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads bookings_config.yaml, or bookings_config.<env>.yaml when env is set,
// from the current directory or the user's home directory
func LoadWithEnv(envName string) (*Config, error) {
	configPath, err := findConfigFile(envName)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies environment
// overrides (including a .env file in the current directory) and validates it
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	overrides, err := env.ParseAs[Overrides]()
	if err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	overrides.apply(&cfg)

	if cfg.ServerAddr == "" {
		cfg.ServerAddr = DefaultServerAddr
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, closure rrule syntax and enum kinds
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, closure := range cfg.Closures {
		if _, err := rrule.StrToROption(closure.RRule); err != nil {
			return fmt.Errorf("invalid rrule in closures[%d]: %w", i, err)
		}
	}

	for kind, entries := range cfg.Enums {
		if _, ok := enums.Fallback[kind]; !ok {
			return fmt.Errorf("unknown enum kind %q", kind)
		}
		for _, e := range entries {
			if e.Value == "" {
				return fmt.Errorf("empty value in enums.%s", kind)
			}
		}
	}

	return nil
}

// ClosureRules returns the rrule strings of every closure
func (c *Config) ClosureRules() []string {
	rules := make([]string, len(c.Closures))
	for i, closure := range c.Closures {
		rules[i] = closure.RRule
	}
	return rules
}

// Registry returns the configured enum overrides, or nil when there are none
func (c *Config) Registry() enums.Registry {
	if len(c.Enums) == 0 {
		return nil
	}
	return enums.StaticRegistry(c.Enums)
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(envName string) (string, error) {
	configFileName := "bookings_config.yaml"
	if envName != "" {
		configFileName = "bookings_config." + envName + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
