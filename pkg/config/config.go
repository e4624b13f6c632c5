package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/travigo/vgnwatch/pkg/util"
)

var ErrMissingDatabaseParameter = errors.New("missing postgres environment variable")

const (
	defaultAPIBase  = "https://start.vag.de/dm/api/v1"
	defaultNetwork  = "VGN"
	defaultRegion   = "Nuremberg"
	defaultInterval = 60
)

type Config struct {
	// Polling
	FetchInterval    time.Duration
	MisfireGrace     time.Duration
	RequestPause     time.Duration
	RequestTimeout   time.Duration
	MaxStopsPerCycle int
	PriorityStops    []string
	FallbackStops    []string
	Region           string

	// VAG API
	APIBase string
	Network string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisDatabase int
	RedisPassword string

	// Postgres
	Postgres PostgresConfig

	// Dashboard
	RefreshInterval time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// ConnectionString renders a pgx compatible URL
func (p PostgresConfig) ConnectionString() string {
	connectionURL := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%s", p.Host, p.Port),
		Path:   p.Database,
	}

	return connectionURL.String()
}

// Validate reports the first missing connection parameter
func (p PostgresConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"PG_USER", p.User},
		{"PG_PASS", p.Password},
		{"PG_HOST", p.Host},
		{"PG_PORT", p.Port},
		{"PG_DBNAME", p.Database},
	}

	for _, parameter := range required {
		if parameter.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingDatabaseParameter, parameter.name)
		}
	}

	return nil
}

// Load reads the process environment, seeded from a .env file in the working directory if one exists
func Load() *Config {
	_ = godotenv.Load()

	return FromEnvironment(util.GetEnvironmentVariables())
}

func FromEnvironment(env map[string]string) *Config {
	return &Config{
		FetchInterval:    util.EnvSeconds(env, "FETCH_INTERVAL", defaultInterval),
		MisfireGrace:     15 * time.Second,
		RequestPause:     time.Duration(util.EnvInt(env, "REQUEST_PAUSE_MS", 500)) * time.Millisecond,
		RequestTimeout:   10 * time.Second,
		MaxStopsPerCycle: util.EnvInt(env, "MAX_STOPS_PER_CYCLE", 50),
		PriorityStops:    util.EnvList(env, "PRIORITY_STOPS", []string{"510", "546", "3151"}),
		FallbackStops:    util.EnvList(env, "FALLBACK_STOPS", []string{"546", "510", "511", "512", "513", "514", "515"}),
		Region:           util.EnvString(env, "REGION", defaultRegion),

		APIBase: util.EnvString(env, "VAG_API_BASE", defaultAPIBase),
		Network: util.EnvString(env, "VAG_NETWORK", defaultNetwork),

		RedisHost:     util.EnvString(env, "REDIS_HOST", "localhost"),
		RedisPort:     util.EnvInt(env, "REDIS_PORT", 6379),
		RedisDatabase: util.EnvInt(env, "REDIS_DB", 0),
		RedisPassword: env["REDIS_PASSWORD"],

		Postgres: PostgresConfig{
			Host:     env["PG_HOST"],
			Port:     env["PG_PORT"],
			User:     env["PG_USER"],
			Password: env["PG_PASS"],
			Database: env["PG_DBNAME"],
		},

		RefreshInterval: util.EnvSeconds(env, "REFRESH_INTERVAL", defaultInterval),
	}
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
