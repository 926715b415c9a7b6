package envutil

import (
	"encoding/base64"
	"os"
	"strconv"
	"strings"
	"time"
)

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Bool(name string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// MustBase64 decodes a required base64-encoded env var, returning ok=false
// when the var is unset, empty, or not valid base64.
func MustBase64(name string) (value []byte, ok bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, false
	}
	return decoded, true
}
