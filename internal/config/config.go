package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the lock TTL and sweep interval durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// lock lease and its reclamation schedule.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret used to verify session tokens
	LockTTL       time.Duration // how long a seat lock lives without being finalized
	SweepInterval time.Duration // how often expired locks are reclaimed
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The lock TTL and
// sweep interval are deployment parameters with sensible defaults: five
// minutes and thirty seconds respectively.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),                           // environment (dev/test/prod)
		Port:          must("APP_PORT"),                          // port to bind the HTTP server
		DBUser:        must("DB_USER"),                           // database user
		DBPass:        os.Getenv("DB_PASS"),                      // database password (empty allowed)
		DBHost:        must("DB_HOST"),                           // database host
		DBPort:        must("DB_PORT"),                           // database port
		DBName:        must("DB_NAME"),                           // database name
		JWTSecret:     must("JWT_SECRET"),                        // secret used to verify session tokens
		LockTTL:       envDur("LOCK_TTL", 5*time.Minute),         // seat lock lease duration
		SweepInterval: envDur("SWEEP_INTERVAL", 30*time.Second),  // expired-lock reclamation cadence
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// The env* helpers read optional variables, falling back to a default
// when the variable is unset or unparsable.  They are shared by the
// rate limit and cache config loaders in this package.

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
