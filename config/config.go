package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
)

const (
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

type ServerConfig struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// StoreConfig selects where relationships and quotas live. The identity directory
// and notifications always use SQLite.
type StoreConfig struct {
	Backend string `toml:"backend"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type AuthConfig struct {
	JWTSecret       string `toml:"jwt_secret"`
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`
	AdminKeyHash    string `toml:"admin_key_hash"` // bcrypt hash of the admin key
}

type QuotaConfig struct {
	DailyLimit         int `toml:"daily_limit"`
	ResetIntervalHours int `toml:"reset_interval_hours"`
}

type SearchConfig struct {
	DefaultRadiusKm float64 `toml:"default_radius_km"`
	MaxRadiusKm     float64 `toml:"max_radius_km"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Store     StoreConfig     `toml:"store"`
	Neo4j     Neo4jConfig     `toml:"neo4j"`
	Auth      AuthConfig      `toml:"auth"`
	Quota     QuotaConfig     `toml:"quota"`
	Search    SearchConfig    `toml:"search"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// Default returns the configuration used when neither file nor environment say otherwise.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{Path: "./anketa.db"},
		Store:    StoreConfig{Backend: BackendSQLite},
		Neo4j:    Neo4jConfig{User: "neo4j", Database: "neo4j"},
		Auth:     AuthConfig{TokenTTLMinutes: 60 * 24},
		Quota:    QuotaConfig{DailyLimit: 50, ResetIntervalHours: 24},
		Search:   SearchConfig{DefaultRadiusKm: 5, MaxRadiusKm: 100},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse TOML: %w", err)
		}
		log.Printf("[CONFIG] Loaded configuration from %s", path)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	log.Printf("[CONFIG] - Port: %s", cfg.Server.Port)
	log.Printf("[CONFIG] - Database: %s", cfg.Database.Path)
	log.Printf("[CONFIG] - Relationship store: %s", cfg.Store.Backend)
	if cfg.Store.Backend == BackendNeo4j {
		log.Printf("[CONFIG] - Neo4j: %s", cfg.Neo4j.URI)
	}
	log.Printf("[CONFIG] - Daily request limit: %d", cfg.Quota.DailyLimit)
	log.Printf("[CONFIG] - Search radius: %g km (max %g km)", cfg.Search.DefaultRadiusKm, cfg.Search.MaxRadiusKm)
	log.Printf("[CONFIG] - Admin endpoints enabled: %t", cfg.Auth.AdminKeyHash != "")
	return cfg, nil
}

// applyEnv overrides fields from environment variables looked up through lookup.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs *multierror.Error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("PORT", &cfg.Server.Port)
	str("DATABASE_PATH", &cfg.Database.Path)
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("NEO4J_URI", &cfg.Neo4j.URI)
	str("NEO4J_USER", &cfg.Neo4j.User)
	str("NEO4J_PASSWORD", &cfg.Neo4j.Password)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("ADMIN_KEY_HASH", &cfg.Auth.AdminKeyHash)
	integer("DAILY_REQUEST_LIMIT", &cfg.Quota.DailyLimit)
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}
	return errs.ErrorOrNil()
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Server.Port == "" {
		errs = multierror.Append(errs, fmt.Errorf("server.port is required"))
	}
	switch c.Store.Backend {
	case BackendSQLite:
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			errs = multierror.Append(errs, fmt.Errorf("neo4j.uri is required for the neo4j backend"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendSQLite, BackendNeo4j, c.Store.Backend))
	}
	if c.Database.Path == "" {
		errs = multierror.Append(errs, fmt.Errorf("database.path is required"))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = multierror.Append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 bytes"))
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("auth.token_ttl_minutes must be positive"))
	}
	if c.Quota.DailyLimit <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("quota.daily_limit must be positive"))
	}
	if c.Quota.ResetIntervalHours <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("quota.reset_interval_hours must be positive"))
	}
	if c.Search.DefaultRadiusKm <= 0 || c.Search.MaxRadiusKm < c.Search.DefaultRadiusKm {
		errs = multierror.Append(errs, fmt.Errorf("search radii must satisfy 0 < default_radius_km <= max_radius_km"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("rate_limit.requests_per_second and rate_limit.burst must be positive"))
	}
	return errs.ErrorOrNil()
}

// TokenTTL returns the token lifetime as a time.Duration
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// ResetInterval returns how long a quota lasts before the periodic run replenishes it.
func (c Config) ResetInterval() time.Duration {
	return time.Duration(c.Quota.ResetIntervalHours) * time.Hour
}
