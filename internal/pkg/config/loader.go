// Package config provides fail-open configuration loading: every value is
// read from the environment (or a file of defaults), validated, and replaced
// by its default when invalid. Fallbacks are logged and counted.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Loader reads configuration values. The environment wins over the file
// values; a key missing from both yields the caller's default.
//
// Loader never fails. Invalid values fall back to the default with a warning.
type Loader struct {
	lookup    func(string) (string, bool)
	file      map[string]string
	logger    *slog.Logger
	metrics   *ConfigMetrics
	fallbacks []string
}

// NewLoader creates a Loader over the process environment. file may be nil.
// metrics may be nil.
func NewLoader(logger *slog.Logger, metrics *ConfigMetrics, file map[string]string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		lookup:  os.LookupEnv,
		file:    file,
		logger:  logger,
		metrics: metrics,
	}
}

func (l *Loader) raw(key string) (string, bool) {
	if v, ok := l.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	if v, ok := l.file[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	return "", false
}

// String returns the value of key, or def when unset.
func (l *Loader) String(key, def string) string {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	return v
}

// StringWith returns the value of key if validate accepts it, def otherwise.
func (l *Loader) StringWith(key, def string, validate func(string) error) string {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	if validate != nil {
		if err := validate(v); err != nil {
			l.fallback(key, v, def, err)
			return def
		}
	}
	return v
}

// Duration parses key as a Go duration. A bare integer is taken as seconds.
func (l *Loader) Duration(key string, def time.Duration, validate func(time.Duration) error) time.Duration {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	d, err := parseDuration(v)
	if err == nil && validate != nil {
		err = validate(d)
	}
	if err != nil {
		l.fallback(key, v, def, err)
		return def
	}
	return d
}

// Int parses key as a base-10 integer.
func (l *Loader) Int(key string, def int, validate func(int) error) int {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		err = fmt.Errorf("not an integer")
	} else if validate != nil {
		err = validate(n)
	}
	if err != nil {
		l.fallback(key, v, def, err)
		return def
	}
	return n
}

// Bool parses key with strconv.ParseBool, also accepting yes/no and on/off.
func (l *Loader) Bool(key string, def bool) bool {
	v, ok := l.raw(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fallback(key, v, def, fmt.Errorf("not a boolean"))
		return def
	}
	return b
}

// Finish publishes the load result to the metrics and returns the keys that
// fell back to their defaults.
func (l *Loader) Finish() []string {
	if l.metrics != nil {
		l.metrics.SetFallbackActive("", len(l.fallbacks) > 0)
		l.metrics.RecordLoadTimestamp()
	}
	return l.fallbacks
}

func (l *Loader) fallback(key, value string, def any, err error) {
	field := strings.ToLower(key)
	l.fallbacks = append(l.fallbacks, key)
	if l.metrics != nil {
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field, "default")
	}
	l.logger.Warn("Configuration fallback applied",
		slog.String("env_key", key),
		slog.String("invalid_value", value),
		slog.String("default_value", fmt.Sprint(def)),
		slog.String("error", err.Error()))
}

func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("not a duration")
	}
	return d, nil
}
