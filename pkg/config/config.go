// Package config loads hitctl configuration from YAML or TOML files and the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/georgfedermann/hit2assext/internal/ids"
	"github.com/georgfedermann/hit2assext/internal/logging"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HIT2ASSEXT_"

// MinInterval is the smallest accepted stale_after and sweep_interval.
const MinInterval = time.Second

// Sink backends.
const (
	SinkNone   = "none"
	SinkMemory = "memory"
	SinkRedis  = "redis"
	SinkFile   = "file"
)

// Config is the runtime configuration of the session pool and its surfaces.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	IDFormat  string `mapstructure:"id_format"`

	// StaleAfter is the age beyond which a session is reaped. Zero disables reaping.
	StaleAfter    time.Duration `mapstructure:"stale_after"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	Admin AdminConfig `mapstructure:"admin"`
	Sink  SinkConfig  `mapstructure:"sink"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// SinkConfig selects where snapshots of reaped sessions go.
type SinkConfig struct {
	Backend string      `mapstructure:"backend"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`

	// EncryptionKey is a base64 encoded 32-byte key. When set, snapshot contents are
	// sealed before they reach the backend.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys are previous encryption keys, still accepted for reading.
	FallbackKeys []string `mapstructure:"fallback_keys"`
	// MaskPatterns are regular expressions; matching variable names are masked.
	MaskPatterns []string `mapstructure:"mask_patterns"`
}

// Keys decodes the encryption keys. It returns a nil active key when encryption is off.
func (s SinkConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey("sink.encryption_key", s.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("sink.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(field, encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", field, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", field, len(key))
	}
	return key, nil
}

// RedisConfig configures the redis snapshot sink.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:      "info",
		LogFormat:     "text",
		IDFormat:      ids.FormatUUID,
		StaleAfter:    20 * time.Second,
		SweepInterval: 5 * time.Second,
		Admin:         AdminConfig{Addr: ":8080"},
		Sink: SinkConfig{
			Backend: SinkNone,
			Dir:     filepath.Join(".hit2assext", "snapshots"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "hit2assext:snapshot:",
				TTL:    24 * time.Hour,
			},
		},
	}
}

// envKeys maps environment variable suffixes to config paths.
var envKeys = map[string][]string{
	"LOG_LEVEL":      {"log_level"},
	"LOG_FORMAT":     {"log_format"},
	"ID_FORMAT":      {"id_format"},
	"STALE_AFTER":    {"stale_after"},
	"SWEEP_INTERVAL": {"sweep_interval"},
	"ADMIN_ADDR":     {"admin", "addr"},
	"SINK_BACKEND":   {"sink", "backend"},
	"SINK_DIR":       {"sink", "dir"},
	"REDIS_ADDR":     {"sink", "redis", "addr"},
	"REDIS_PASSWORD": {"sink", "redis", "password"},
	"REDIS_DB":       {"sink", "redis", "db"},
	"REDIS_PREFIX":   {"sink", "redis", "prefix"},
	"REDIS_TTL":      {"sink", "redis", "ttl"},

	"SINK_ENCRYPTION_KEY": {"sink", "encryption_key"},
	"SINK_FALLBACK_KEYS":  {"sink", "fallback_keys"},
	"SINK_MASK_PATTERNS":  {"sink", "mask_patterns"},
}

// LoadDotEnv loads KEY=VALUE files into the process environment without overriding
// variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from the defaults, the file at path (if not empty) and
// HIT2ASSEXT_* environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	if env := envOverrides(os.LookupEnv); len(env) > 0 {
		if err := decode(env, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to decode environment overrides: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse toml config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return raw, nil
}

func envOverrides(lookup func(string) (string, bool)) map[string]any {
	out := make(map[string]any)
	for suffix, path := range envKeys {
		val, ok := lookup(EnvPrefix + suffix)
		if !ok {
			continue
		}
		node := out
		for _, key := range path[:len(path)-1] {
			child, ok := node[key].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[key] = child
			}
			node = child
		}
		node[path[len(path)-1]] = val
	}
	return out
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook decodes duration fields. Numbers without a unit, bare or quoted, count as
// seconds; anything else must parse with time.ParseDuration.
func durationHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		s := strings.TrimSpace(data.(string))
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return seconds(n), nil
		}
		return time.ParseDuration(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return seconds(float64(reflect.ValueOf(data).Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return seconds(float64(reflect.ValueOf(data).Uint())), nil
	case reflect.Float32, reflect.Float64:
		return seconds(reflect.ValueOf(data).Float()), nil
	}
	return data, nil
}

func seconds(n float64) time.Duration {
	return time.Duration(n * float64(time.Second))
}

// Validate checks field values and cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if _, err := ids.Generator(c.IDFormat); err != nil {
		errs = append(errs, err)
	}
	if c.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("stale_after must not be negative, got %s", c.StaleAfter))
	}
	if c.StaleAfter > 0 && c.StaleAfter < MinInterval {
		errs = append(errs, fmt.Errorf("stale_after must be at least %s when set, got %s", MinInterval, c.StaleAfter))
	}
	if c.StaleAfter > 0 && c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep_interval must be positive when stale_after is set, got %s", c.SweepInterval))
	}
	if c.SweepInterval > 0 && c.SweepInterval < MinInterval {
		errs = append(errs, fmt.Errorf("sweep_interval must be at least %s when set, got %s", MinInterval, c.SweepInterval))
	}
	switch c.Sink.Backend {
	case "", SinkNone, SinkMemory:
	case SinkFile:
		if c.Sink.Dir == "" {
			errs = append(errs, errors.New("sink.dir is required for the file backend"))
		}
	case SinkRedis:
		if c.Sink.Redis.Addr == "" {
			errs = append(errs, errors.New("sink.redis.addr is required for the redis backend"))
		}
		if c.Sink.Redis.TTL < 0 {
			errs = append(errs, fmt.Errorf("sink.redis.ttl must not be negative, got %s", c.Sink.Redis.TTL))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink backend %q", c.Sink.Backend))
	}
	if _, _, err := c.Sink.Keys(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Sink.FallbackKeys) > 0 && c.Sink.EncryptionKey == "" {
		errs = append(errs, errors.New("sink.fallback_keys requires sink.encryption_key"))
	}
	for _, p := range c.Sink.MaskPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid sink.mask_patterns entry %q: %w", p, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
