// Package config loads container settings from a YAML file, a .env file
// and THIMBLE_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	PipelineCompiled    = "compiled"
	PipelineInterpreted = "interpreted"

	ModeDiagnostic = "diagnostic"
	ModeOptimized  = "optimized"

	FormatJSON    = "json"
	FormatConsole = "console"

	DefaultEnvPrefix = "THIMBLE"
	DefaultMaxDepth  = 512
)

// Settings configures a container tree.
type Settings struct {
	Pipeline        string        `mapstructure:"pipeline" validate:"oneof=compiled interpreted"`
	Mode            string        `mapstructure:"mode" validate:"oneof=diagnostic optimized"`
	DefaultLifetime string        `mapstructure:"default_lifetime" validate:"oneof=transient container singleton hierarchical per_thread per_resolve external"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout" validate:"gte=0"`
	MaxDepth        int           `mapstructure:"max_depth" validate:"gt=0"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=json console"`

	output io.Writer
}

// Defaults returns the settings used for keys no source sets.
func Defaults() Settings {
	return Settings{
		Pipeline:        PipelineCompiled,
		Mode:            ModeDiagnostic,
		DefaultLifetime: "transient",
		MaxDepth:        DefaultMaxDepth,
		LogLevel:        zerolog.LevelInfoValue,
		LogFormat:       FormatJSON,
	}
}

type loader struct {
	file      string
	envFile   string
	envPrefix string
	output    io.Writer
}

type Option func(*loader)

// WithFile reads settings from a YAML file. The file must exist.
func WithFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// WithEnvFile loads a .env file before reading the environment. The file
// must exist. Without this option ./.env is loaded when present.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

// WithOutput sets where the logger built by Settings.Logger writes.
func WithOutput(w io.Writer) Option {
	return func(l *loader) { l.output = w }
}

// Load reads and validates the settings. Environment variables win over
// the file, which wins over the defaults.
func Load(opts ...Option) (*Settings, error) {
	l := &loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()
	defaults := Defaults()
	v.SetDefault("pipeline", defaults.Pipeline)
	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("default_lifetime", defaults.DefaultLifetime)
	v.SetDefault("lock_timeout", defaults.LockTimeout)
	v.SetDefault("max_depth", defaults.MaxDepth)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	if l.file != "" {
		v.SetConfigFile(l.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", l.file, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	s.normalize()
	s.output = l.output

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (l *loader) loadEnvFile() error {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", l.envFile, err)
		}
		return nil
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("loading env file .env: %w", err)
		}
	}
	return nil
}

func (s *Settings) normalize() {
	s.Pipeline = strings.ToLower(strings.TrimSpace(s.Pipeline))
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	s.DefaultLifetime = strings.ToLower(strings.TrimSpace(s.DefaultLifetime))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid settings")

func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Logger builds the logger described by LogLevel and LogFormat.
func (s *Settings) Logger() *zerolog.Logger {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := s.output
	if out == nil {
		out = os.Stderr
	}
	if s.LogFormat == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &logger
}
