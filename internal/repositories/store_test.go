package repositories

import (
	"os"
	"testing"
	"time"

	"jetstore/internal/config"
	"jetstore/internal/database"

	"github.com/google/uuid"
)

// InitDBDefault opens the database named by TEST_DATABASE_URL and applies the schema.
// Store-backed tests are skipped when it is not set.
func InitDBDefault(t *testing.T) *database.Postgres {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	cfg := &config.PostgresConfig{
		URL:            url,
		MaxConns:       20,
		CommandTimeout: 10 * time.Second,
	}
	psql, err := database.NewPostgres(cfg)
	if err != nil {
		t.Fatal("Failed connect to database: ", err)
	}
	if err := database.Migrate(cfg.DSN()); err != nil {
		t.Fatal("Failed to migrate database: ", err)
	}
	t.Cleanup(func() {
		_ = psql.Close()
	})
	return psql
}

func newUserID() string {
	return "test-" + uuid.NewString()
}
