package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrReview is returned by Load when config.json was created or extended
// with default values. The caller should refuse to start until the file
// has been reviewed.
var ErrReview = errors.New("config file needs review")

// Config holds all bancho settings, stored as a flat config.json.
type Config struct {
	// Network
	Port int `json:"port"`

	// Database
	DBHost     string `json:"db_host"`
	DBUsername string `json:"db_username"`
	DBPassword string `json:"db_password"`
	DBDatabase string `json:"db_database"`
	DBWorkers  int    `json:"db_workers"`

	// Redis
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password"`

	// HTTP front
	GzipLevel    int `json:"gzip_level"`
	ThreadsCount int `json:"threads_count"`

	// Integrations
	CIKey            string `json:"ci_key"`
	NewRankedWebhook string `json:"new_ranked_webhook"`
	LetsAPIURL       string `json:"lets_api_url"`
	IPAPIURL         string `json:"ip_api_url"`
}

// DSN returns the PostgreSQL connection string. DBWorkers caps the pool size.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable&pool_max_conns=%d",
		c.DBUsername, c.DBPassword, c.DBHost, c.DBDatabase, c.DBWorkers,
	)
}

// RedisAddr returns the host:port address for the redis client.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Default returns Config with sensible defaults.
func Default() Config {
	return Config{
		Port:         5001,
		DBHost:       "localhost",
		DBUsername:   "bancho",
		DBPassword:   "bancho",
		DBDatabase:   "bancho",
		DBWorkers:    4,
		RedisHost:    "localhost",
		RedisPort:    6379,
		RedisDB:      0,
		GzipLevel:    6,
		ThreadsCount: 2,
		LetsAPIURL:   "http://127.0.0.1:5002",
		IPAPIURL:     "http://ip.zxq.co",
	}
}

// Load reads config from a JSON file. Keys absent from the file are
// materialized with their defaults and written back, and Load returns
// ErrReview so the caller can stop for a manual review. A missing file
// is created the same way.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if werr := write(path, cfg); werr != nil {
				return cfg, werr
			}
			return cfg, fmt.Errorf("created %s with defaults: %w", path, ErrReview)
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	missing, err := missingKeys(data)
	if err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if len(missing) > 0 {
		if werr := write(path, cfg); werr != nil {
			return cfg, werr
		}
		return cfg, fmt.Errorf("added keys %v to %s: %w", missing, path, ErrReview)
	}

	return cfg, nil
}

// missingKeys returns the config keys not present in the raw JSON document.
func missingKeys(data []byte) ([]string, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, err
	}

	keys := []string{
		"port",
		"db_host", "db_username", "db_password", "db_database", "db_workers",
		"redis_host", "redis_port", "redis_db", "redis_password",
		"gzip_level", "threads_count",
		"ci_key", "new_ranked_webhook", "lets_api_url", "ip_api_url",
	}
	var missing []string
	for _, k := range keys {
		if _, ok := present[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

func write(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
