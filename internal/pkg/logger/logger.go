package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Logger wraps a zap.SugaredLogger with key/value redaction so callers can
// log request and job context without worrying about leaking secrets.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

var redactionEnabled = func() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED")))
	return v != "0" && v != "false" && v != "no" && v != "off"
}()

// sanitizeKVs walks a Sugared-logger style key/value slice and redacts or
// hashes values whose key looks sensitive. Odd-length slices are passed
// through unchanged; zap already logs a warning for those.
func sanitizeKVs(kvs []interface{}) []interface{} {
	if !redactionEnabled || len(kvs) < 2 {
		return kvs
	}
	out := make([]interface{}, len(kvs))
	copy(out, kvs)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		switch {
		case isRedactKey(key):
			out[i+1] = "[REDACTED]"
		case isHashKey(key):
			if s, ok := out[i+1].(string); ok && s != "" {
				out[i+1] = hashValue(s)
			}
		}
	}
	return out
}

func isRedactKey(key string) bool {
	k := strings.ToLower(key)
	for _, needle := range []string{"token", "authorization", "password", "secret", "cookie", "api_key", "apikey", "email"} {
		if strings.Contains(k, needle) {
			return true
		}
	}
	return false
}

func isHashKey(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, "_id") || k == "id"
}

func hashValue(v string) string {
	salt := os.Getenv("LOG_HASH_SALT")
	sum := sha256.Sum256([]byte(salt + v))
	return hex.EncodeToString(sum[:])[:12]
}
