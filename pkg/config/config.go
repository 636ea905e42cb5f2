// Package config loads ViewModel and service settings from YAML or JSON files.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/spindle/internal/logging"
	"github.com/aretw0/spindle/pkg/persistence"
	"github.com/aretw0/spindle/pkg/persistence/middleware"
	"github.com/aretw0/spindle/pkg/ports"
	"github.com/aretw0/spindle/pkg/viewmodel"
)

// Environment overrides read by FromEnv.
const (
	EnvLogLevel  = "SPINDLE_LOG_LEVEL"
	EnvHTTPAddr  = "SPINDLE_HTTP_ADDR"
	EnvRedisAddr = "SPINDLE_REDIS_ADDR"
	EnvStrategy  = "SPINDLE_STRATEGY"
	// EnvStoreDir enables the file store.
	EnvStoreDir = "SPINDLE_STORE_DIR"
	// EnvEncryptionKey is a base64 AES-256 key; prefer it to the file setting.
	EnvEncryptionKey = "SPINDLE_ENCRYPTION_KEY"
)

// Settings is the file format.
//
//	name: counter
//	log_level: debug
//	inputs:
//	  strategy: lifo
//	  capacity: 8
//	  overflow: drop_latest
//	events:
//	  capacity: 128
//	side_jobs:
//	  grace_period: 2s
//	http:
//	  addr: ":8080"
//	  metrics: true
//	redis:
//	  addr: localhost:6379
//	  ttl: 24h
//	store:
//	  dir: .spindle/states
//	  encryption_key: <base64, 32 bytes>
//	  redact: ["password"]
type Settings struct {
	Name     string          `yaml:"name" json:"name"`
	LogLevel string          `yaml:"log_level" json:"log_level"`
	Inputs   InputSettings   `yaml:"inputs" json:"inputs"`
	Events   EventSettings   `yaml:"events" json:"events"`
	SideJobs SideJobSettings `yaml:"side_jobs" json:"side_jobs"`
	HTTP     HTTPSettings    `yaml:"http" json:"http"`
	Redis    RedisSettings   `yaml:"redis" json:"redis"`
	Store    StoreSettings   `yaml:"store" json:"store"`
}

// InputSettings selects the InputStrategy. A zero Capacity keeps the strategy default.
type InputSettings struct {
	Strategy string `yaml:"strategy" json:"strategy"`
	Capacity int    `yaml:"capacity" json:"capacity"`
	Overflow string `yaml:"overflow" json:"overflow"`
}

// EventSettings sizes the event buffer. Zero keeps the default.
type EventSettings struct {
	Capacity int `yaml:"capacity" json:"capacity"`
}

// SideJobSettings configures side-job shutdown.
type SideJobSettings struct {
	GracePeriod Duration `yaml:"grace_period" json:"grace_period"`
}

// HTTPSettings configures the serve command.
type HTTPSettings struct {
	Addr    string `yaml:"addr" json:"addr"`
	Metrics bool   `yaml:"metrics" json:"metrics"`
}

// RedisSettings enables state persistence when Addr is set.
type RedisSettings struct {
	Addr     string   `yaml:"addr" json:"addr"`
	Password string   `yaml:"password" json:"password"`
	DB       int      `yaml:"db" json:"db"`
	Prefix   string   `yaml:"prefix" json:"prefix"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
}

// StoreSettings shapes how States are saved. Dir enables the file store when no
// Redis address is set; the encoding options apply to either store.
type StoreSettings struct {
	Dir string `yaml:"dir" json:"dir"`
	// EncryptionKey seals saved States with AES-256-GCM. FallbackKeys still
	// decrypt States sealed before a key rotation.
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"fallback_keys"`
	// Redact masks fields whose name matches one of these patterns.
	Redact []string `yaml:"redact" json:"redact"`
}

// Codec builds the encoding of saved States: JSON, then masking, then encryption.
func (s StoreSettings) Codec() (ports.Codec, error) {
	var mws []middleware.Middleware
	if len(s.Redact) > 0 {
		mw, err := middleware.NewPIIMiddleware(s.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if s.EncryptionKey != "" {
		cfg := middleware.EncryptionConfig{}
		var err error
		if cfg.ActiveKey, err = decodeKey(s.EncryptionKey); err != nil {
			return nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		for i, k := range s.FallbackKeys {
			key, err := decodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
			}
			cfg.FallbackKeys = append(cfg.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(cfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return persistence.Chain(persistence.JSON, mws...), nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != middleware.KeySize {
		return nil, fmt.Errorf("key must decode to %d bytes, got %d", middleware.KeySize, len(key))
	}
	return key, nil
}

// Duration is a time.Duration written as "1500ms", "2s" or "1h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Defaults returns the settings used when no file is given.
func Defaults() Settings {
	return Settings{
		Name:     "counter",
		LogLevel: "info",
		Inputs:   InputSettings{Strategy: viewmodel.StrategyFIFO},
		HTTP:     HTTPSettings{Addr: ":8080", Metrics: true},
		Redis:    RedisSettings{Prefix: "spindle:state:"},
	}
}

// LoadFile reads path over Defaults. A missing file yields the defaults; the
// format follows the extension, YAML unless it is ".json".
func LoadFile(path string) (Settings, error) {
	s := Defaults()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return s, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return s, s.Validate()
}

// FromEnv overrides s with the SPINDLE_* environment variables that are set.
func (s Settings) FromEnv() Settings {
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		s.HTTP.Addr = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		s.Redis.Addr = v
	}
	if v := os.Getenv(EnvStrategy); v != "" {
		s.Inputs.Strategy = v
	}
	if v := os.Getenv(EnvStoreDir); v != "" {
		s.Store.Dir = v
	}
	if v := os.Getenv(EnvEncryptionKey); v != "" {
		s.Store.EncryptionKey = v
	}
	return s
}

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch s.Inputs.Strategy {
	case "", viewmodel.StrategyFIFO, viewmodel.StrategyLIFO, viewmodel.StrategyParallel:
	default:
		errs = append(errs, fmt.Errorf("unknown input strategy %q", s.Inputs.Strategy))
	}
	if _, err := viewmodel.ParseOverflow(s.Inputs.Overflow); err != nil {
		errs = append(errs, err)
	}
	if s.Inputs.Capacity < 0 {
		errs = append(errs, fmt.Errorf("inputs.capacity must not be negative"))
	}
	if s.Events.Capacity < 0 {
		errs = append(errs, fmt.Errorf("events.capacity must not be negative"))
	}
	if s.SideJobs.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("side_jobs.grace_period must not be negative"))
	}
	if _, err := s.Store.Codec(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, info when invalid.
func (s Settings) Level() slog.Level {
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Apply fills cfg from s. Fields s leaves unset keep what cfg already holds.
func Apply[I, E, S any](s Settings, cfg *viewmodel.Config[I, E, S]) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Name != "" {
		cfg.Name = s.Name
	}

	var opts []viewmodel.QueueOption
	if s.Inputs.Capacity > 0 {
		opts = append(opts, viewmodel.WithCapacity(s.Inputs.Capacity))
	}
	if s.Inputs.Overflow != "" {
		overflow, _ := viewmodel.ParseOverflow(s.Inputs.Overflow)
		opts = append(opts, viewmodel.WithOverflow(overflow))
	}
	if s.Inputs.Strategy != "" || len(opts) > 0 {
		strategy, err := viewmodel.NewInputStrategy[I, S](s.Inputs.Strategy, opts...)
		if err != nil {
			return err
		}
		cfg.InputStrategy = strategy
	}

	if s.Events.Capacity > 0 {
		cfg.EventStrategy = viewmodel.NewBufferedEventStrategy[E](s.Events.Capacity)
	}
	if s.SideJobs.GracePeriod > 0 {
		cfg.SideJobGracePeriod = time.Duration(s.SideJobs.GracePeriod)
	}
	return nil
}
