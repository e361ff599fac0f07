package helper

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
)

// DatabaseConfiguration holds the connection settings for PostgreSQL
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the database configuration from the environment.
// Host, port, database and username are required.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     os.Getenv("DATABASE_HOST"),
		Port:     os.Getenv("DATABASE_PORT"),
		Database: os.Getenv("DATABASE_NAME"),
		Username: os.Getenv("DATABASE_USER"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		Schema:   getEnvOrDefault("DATABASE_SCHEMA", "public"),
		SSLMode:  getEnvOrDefault("DATABASE_SSL_MODE", "disable"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all required fields are set
func (c *DatabaseConfiguration) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "DATABASE_HOST")
	}
	if c.Port == "" {
		missing = append(missing, "DATABASE_PORT")
	}
	if c.Database == "" {
		missing = append(missing, "DATABASE_NAME")
	}
	if c.Username == "" {
		missing = append(missing, "DATABASE_USER")
	}
	if len(missing) > 0 {
		return NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// ConnectionString returns the lib/pq connection string
func (c *DatabaseConfiguration) ConnectionString() string {
	schema := c.Schema
	if schema == "" {
		schema = "public"
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, sslMode, schema,
	)
}

// ServerConfiguration holds the settings of the GraphQL server
type ServerConfiguration struct {
	Address          string
	Path             string
	EnablePlayground bool
	AccountCacheSize int
	// ComplexityLimit rejects operations above this complexity, zero disables the limit
	ComplexityLimit int
}

// NewServerConfiguration reads the server configuration from the environment,
// falling back to defaults for unset variables.
func NewServerConfiguration() (*ServerConfiguration, error) {
	config := &ServerConfiguration{
		Address:          getEnvOrDefault("LINKGRAPH_ADDRESS", ":8080"),
		Path:             getEnvOrDefault("LINKGRAPH_PATH", "/graphql"),
		EnablePlayground: true,
		AccountCacheSize: 1024,
		ComplexityLimit:  1000,
	}

	if v := os.Getenv("LINKGRAPH_PLAYGROUND"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, NewError("parse LINKGRAPH_PLAYGROUND", err)
		}
		config.EnablePlayground = enabled
	}

	if v := os.Getenv("LINKGRAPH_ACCOUNT_CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewError("parse LINKGRAPH_ACCOUNT_CACHE_SIZE", err)
		}
		if size < 0 {
			return nil, NewError("parse LINKGRAPH_ACCOUNT_CACHE_SIZE", fmt.Errorf("cache size must not be negative, got %d", size))
		}
		config.AccountCacheSize = size
	}

	if v := os.Getenv("LINKGRAPH_COMPLEXITY_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return nil, NewError("parse LINKGRAPH_COMPLEXITY_LIMIT", err)
		}
		if limit < 0 {
			return nil, NewError("parse LINKGRAPH_COMPLEXITY_LIMIT", fmt.Errorf("complexity limit must not be negative, got %d", limit))
		}
		config.ComplexityLimit = limit
	}

	if !strings.HasPrefix(config.Path, "/") {
		return nil, NewError("server configuration", fmt.Errorf("path must start with '/', got %q", config.Path))
	}

	return config, nil
}

// SetTestDatabaseConfigEnvs sets the database environment for a test
// container listening on the given port.
func SetTestDatabaseConfigEnvs(t *testing.T, dbPort string) {
	t.Setenv("DATABASE_HOST", "localhost")
	t.Setenv("DATABASE_PORT", dbPort)
	t.Setenv("DATABASE_NAME", "database")
	t.Setenv("DATABASE_USER", "user")
	t.Setenv("DATABASE_PASSWORD", "password")
	t.Setenv("DATABASE_SCHEMA", "public")
	t.Setenv("DATABASE_SSL_MODE", "disable")
}

func getEnvOrDefault(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
