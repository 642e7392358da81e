// Package config loads run settings from defaults, an optional config file,
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lukemcguire/zombielinks/extract"
	"github.com/lukemcguire/zombielinks/linkcheck"
	"github.com/lukemcguire/zombielinks/policy"
	"github.com/lukemcguire/zombielinks/source"
)

// Configuration keys.
const (
	KeyInclude           = "include"
	KeyExclude           = "exclude"
	KeyIgnoreURLPatterns = "ignore_url_patterns"
	KeyAllowedStatus     = "allowed_status"
	KeyConcurrency       = "concurrency"
	KeyTimeoutMS         = "timeout_ms"
	KeyFailOnBroken      = "fail_on_broken"
	KeyMaxRedirects      = "max_redirects"
	KeyRetries           = "retries"
	KeyRetryDelay        = "retry_delay"
	KeyRateLimit         = "rate_limit"
	KeyRespectRobots     = "respect_robots"
	KeyUserAgent         = "user_agent"
	KeyMarkupExtensions  = "markup_extensions"
	KeyFormat            = "format"
	KeyProgress          = "progress"
	KeySink              = "sink"
	KeyDebug             = "debug"
)

// EnvPrefix prefixes every environment variable, e.g. ZOMBIELINKS_CONCURRENCY.
const EnvPrefix = "ZOMBIELINKS"

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = ".zombielinks"

var (
	ErrInvalidFormat   = errors.New("invalid output format")
	ErrInvalidSink     = errors.New("invalid sink")
	ErrInvalidProgress = errors.New("invalid progress mode")
)

var (
	formats       = []string{"text", "json", "csv", "yaml"}
	sinks         = []string{"auto", "console", "azure", "github"}
	progressModes = []string{"auto", "always", "never"}
)

// Config holds the resolved settings for a run.
type Config struct {
	Include           []string
	Exclude           []string
	IgnoreURLPatterns []string
	AllowedStatus     string
	Concurrency       int
	Timeout           time.Duration
	FailOnBroken      bool
	MaxRedirects      int
	Retries           int
	RetryDelay        time.Duration
	RateLimit         int
	RespectRobots     bool
	UserAgent         string
	MarkupExtensions  []string
	Format            string
	Progress          string
	Sink              string
	Debug             bool
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInclude, source.DefaultInclude)
	v.SetDefault(KeyExclude, source.DefaultExclude)
	v.SetDefault(KeyIgnoreURLPatterns, []string{})
	v.SetDefault(KeyAllowedStatus, policy.DefaultSpec)
	v.SetDefault(KeyConcurrency, 16)
	v.SetDefault(KeyTimeoutMS, 10000)
	v.SetDefault(KeyFailOnBroken, false)
	v.SetDefault(KeyMaxRedirects, 10)
	v.SetDefault(KeyRetries, 0)
	v.SetDefault(KeyRetryDelay, time.Second)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyRespectRobots, false)
	v.SetDefault(KeyUserAgent, linkcheck.DefaultUserAgent)
	v.SetDefault(KeyMarkupExtensions, extract.DefaultMarkupExtensions)
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyProgress, "auto")
	v.SetDefault(KeySink, "auto")
	v.SetDefault(KeyDebug, false)
}

// ReadFile reads path, or DefaultConfigName from the working directory when
// path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// Load resolves a Config from v. Out-of-range numbers are clamped; unknown
// format, sink or progress values are rejected.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Include:           stringList(v, KeyInclude),
		Exclude:           stringList(v, KeyExclude),
		IgnoreURLPatterns: stringList(v, KeyIgnoreURLPatterns),
		AllowedStatus:     v.GetString(KeyAllowedStatus),
		Concurrency:       max(1, v.GetInt(KeyConcurrency)),
		Timeout:           time.Duration(max(1, v.GetInt(KeyTimeoutMS))) * time.Millisecond,
		FailOnBroken:      v.GetBool(KeyFailOnBroken),
		MaxRedirects:      max(0, v.GetInt(KeyMaxRedirects)),
		Retries:           max(0, v.GetInt(KeyRetries)),
		RetryDelay:        max(0, v.GetDuration(KeyRetryDelay)),
		RateLimit:         max(0, v.GetInt(KeyRateLimit)),
		RespectRobots:     v.GetBool(KeyRespectRobots),
		UserAgent:         strings.TrimSpace(v.GetString(KeyUserAgent)),
		MarkupExtensions:  stringList(v, KeyMarkupExtensions),
		Format:            strings.ToLower(strings.TrimSpace(v.GetString(KeyFormat))),
		Progress:          strings.ToLower(strings.TrimSpace(v.GetString(KeyProgress))),
		Sink:              strings.ToLower(strings.TrimSpace(v.GetString(KeySink))),
		Debug:             v.GetBool(KeyDebug),
	}

	if !slices.Contains(formats, cfg.Format) {
		return Config{}, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidFormat, cfg.Format, strings.Join(formats, ", "))
	}
	if !slices.Contains(sinks, cfg.Sink) {
		return Config{}, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidSink, cfg.Sink, strings.Join(sinks, ", "))
	}
	if !slices.Contains(progressModes, cfg.Progress) {
		return Config{}, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidProgress, cfg.Progress, strings.Join(progressModes, ", "))
	}
	return cfg, nil
}

// Checker returns the checker settings derived from c.
func (c Config) Checker() linkcheck.Config {
	return linkcheck.Config{
		Concurrency:    c.Concurrency,
		RequestTimeout: c.Timeout,
		MaxRedirects:   c.MaxRedirects,
		UserAgent:      c.UserAgent,
		RateLimit:      c.RateLimit,
		RespectRobots:  c.RespectRobots,
		RetryPolicy: linkcheck.RetryPolicy{
			MaxRetries: c.Retries,
			BaseDelay:  c.RetryDelay,
			MaxDelay:   30 * time.Second,
		},
	}
}

func stringList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		return SplitList(raw)
	case []string:
		return SplitList(strings.Join(raw, "\n"))
	case []any:
		parts := make([]string, len(raw))
		for i, item := range raw {
			parts[i] = fmt.Sprint(item)
		}
		return SplitList(strings.Join(parts, "\n"))
	default:
		return SplitList(fmt.Sprint(raw))
	}
}

// SplitList splits s on newlines and on commas outside of {...} groups, so
// brace globs like "*.{html,md}" survive. Items are trimmed and empty items
// dropped.
func SplitList(s string) []string {
	var items []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, r := range s {
		switch {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		case r == '\n' || (r == ',' && depth == 0):
			flush()
			depth = 0
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return items
}
