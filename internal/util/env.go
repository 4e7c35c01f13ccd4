// Package util provides environment parsing and random identifier helpers
// shared across FieldOps components.
package util

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv returns the trimmed value of key and whether it was non-empty.
func lookupEnv(key string) (string, bool) {
	val := strings.TrimSpace(os.Getenv(key))
	return val, val != ""
}

// ParseBoolEnv reads a boolean variable. Besides the strconv spellings it
// accepts yes/no and on/off in any case. Unset or unparsable values give def.
func ParseBoolEnv(key string, def bool) bool {
	val, ok := lookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(val) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("util.ParseBoolEnv: invalid boolean, using default", "key", key, "value", val, "default", def)
		return def
	}
	return b
}

// ParseDurationEnv reads a duration such as "5s". Unset, unparsable or
// non-positive values give def.
func ParseDurationEnv(key string, def time.Duration) time.Duration {
	val, ok := lookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		slog.Warn("util.ParseDurationEnv: invalid duration, using default", "key", key, "value", val, "default", def)
		return def
	}
	return d
}
