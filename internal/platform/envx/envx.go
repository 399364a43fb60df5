// Package envx reads typed settings from the environment. Unset, empty or
// unparsable values fall back to the supplied default.
package envx

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns $key, or def when it is unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns $key as an int.
func Int(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

// Duration accepts Go durations ("90s", "1h30m"). A bare integer is read
// as minutes, which is how older deployments set TTLs.
func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute
	}
	return def
}

// CSV splits $key (or def) on commas, dropping blank items.
func CSV(key, def string) []string {
	var out []string
	for part := range strings.SplitSeq(String(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
