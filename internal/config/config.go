// internal/config/config.go
//
// Environment configuration for the Letter Pop server.
// Every value has a development default, so an empty environment (or a
// missing .env) still yields a runnable server.

package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the resolved server configuration.
type Config struct {
	Port               string
	LogLevel           string
	DBPath             string
	JWTSecret          string
	JWTExpiresDays     int
	CookieName         string
	ClientOrigin       string
	Production         bool
	TickInterval       time.Duration
	SpeechRestartDelay time.Duration
	AnnounceDelay      time.Duration
	DailySalt          string
	WordsFile          string
}

// Load reads the configuration from the process environment.
func Load() Config {
	return Config{
		Port:               Get("PORT", "5175"),
		LogLevel:           Get("LOG_LEVEL", "info"),
		DBPath:             Get("DB_PATH", "./data/letterpop.db"),
		JWTSecret:          Get("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays:     getInt("JWT_EXPIRES_DAYS", 14),
		CookieName:         Get("COOKIE_NAME", "letterpop_token"),
		ClientOrigin:       Get("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:         Get("APP_ENV", "development") == "production",
		TickInterval:       getDuration("TICK_INTERVAL", 16*time.Millisecond),
		SpeechRestartDelay: getDuration("SPEECH_RESTART_DELAY", 800*time.Millisecond),
		AnnounceDelay:      getDuration("ANNOUNCE_DELAY", 500*time.Millisecond),
		DailySalt:          Get("DAILY_SALT", "letterpop"),
		WordsFile:          os.Getenv("WORDS_FILE"),
	}
}

// Get returns the value of k or def if unset/empty.
func Get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return n
	}
	return def
}

// getDuration accepts Go durations ("16ms") or bare milliseconds ("16").
func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return def
}
