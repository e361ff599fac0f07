package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabaseConfiguration(t *testing.T) {
	t.Run("Reads configuration from environment", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5433")

		config, err := NewDatabaseConfiguration()

		require.NoError(t, err)
		assert.Equal(t, "localhost", config.Host)
		assert.Equal(t, "5433", config.Port)
		assert.Equal(t, "database", config.Database)
		assert.Equal(t, "user", config.Username)
		assert.Equal(t, "password", config.Password)
		assert.Equal(t, "public", config.Schema)
		assert.Equal(t, "disable", config.SSLMode)
	})

	t.Run("Missing required variables", func(t *testing.T) {
		t.Setenv("DATABASE_HOST", "")
		t.Setenv("DATABASE_PORT", "")
		t.Setenv("DATABASE_NAME", "")
		t.Setenv("DATABASE_USER", "")

		_, err := NewDatabaseConfiguration()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_HOST")
		assert.Contains(t, err.Error(), "DATABASE_USER")
	})

	t.Run("Defaults schema and ssl mode", func(t *testing.T) {
		SetTestDatabaseConfigEnvs(t, "5432")
		t.Setenv("DATABASE_SCHEMA", "")
		t.Setenv("DATABASE_SSL_MODE", "")

		config, err := NewDatabaseConfiguration()

		require.NoError(t, err)
		assert.Equal(t, "public", config.Schema)
		assert.Equal(t, "disable", config.SSLMode)
	})
}

func TestDatabaseConfigurationConnectionString(t *testing.T) {
	config := &DatabaseConfiguration{
		Host:     "db",
		Port:     "5432",
		Database: "linkgraph",
		Username: "user",
		Password: "secret",
	}

	connStr := config.ConnectionString()

	assert.Contains(t, connStr, "host=db")
	assert.Contains(t, connStr, "dbname=linkgraph")
	assert.Contains(t, connStr, "sslmode=disable")
	assert.Contains(t, connStr, "search_path=public")
}

func TestNewServerConfiguration(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("LINKGRAPH_ADDRESS", "")
		t.Setenv("LINKGRAPH_PATH", "")
		t.Setenv("LINKGRAPH_PLAYGROUND", "")
		t.Setenv("LINKGRAPH_ACCOUNT_CACHE_SIZE", "")
		t.Setenv("LINKGRAPH_COMPLEXITY_LIMIT", "")

		config, err := NewServerConfiguration()

		require.NoError(t, err)
		assert.Equal(t, ":8080", config.Address)
		assert.Equal(t, "/graphql", config.Path)
		assert.True(t, config.EnablePlayground)
		assert.Equal(t, 1024, config.AccountCacheSize)
		assert.Equal(t, 1000, config.ComplexityLimit)
	})

	t.Run("Overrides from environment", func(t *testing.T) {
		t.Setenv("LINKGRAPH_ADDRESS", "127.0.0.1:9000")
		t.Setenv("LINKGRAPH_PATH", "/query")
		t.Setenv("LINKGRAPH_PLAYGROUND", "false")
		t.Setenv("LINKGRAPH_ACCOUNT_CACHE_SIZE", "0")
		t.Setenv("LINKGRAPH_COMPLEXITY_LIMIT", "0")

		config, err := NewServerConfiguration()

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", config.Address)
		assert.Equal(t, "/query", config.Path)
		assert.False(t, config.EnablePlayground)
		assert.Equal(t, 0, config.AccountCacheSize)
		assert.Equal(t, 0, config.ComplexityLimit)
	})

	t.Run("Invalid values", func(t *testing.T) {
		t.Setenv("LINKGRAPH_PATH", "")
		t.Setenv("LINKGRAPH_PLAYGROUND", "maybe")

		_, err := NewServerConfiguration()
		assert.Error(t, err)

		t.Setenv("LINKGRAPH_PLAYGROUND", "")
		t.Setenv("LINKGRAPH_ACCOUNT_CACHE_SIZE", "-1")

		_, err = NewServerConfiguration()
		assert.Error(t, err)

		t.Setenv("LINKGRAPH_ACCOUNT_CACHE_SIZE", "")
		t.Setenv("LINKGRAPH_COMPLEXITY_LIMIT", "-5")

		_, err = NewServerConfiguration()
		assert.Error(t, err)

		t.Setenv("LINKGRAPH_COMPLEXITY_LIMIT", "")
		t.Setenv("LINKGRAPH_PATH", "graphql")

		_, err = NewServerConfiguration()
		assert.Error(t, err)
	})
}
