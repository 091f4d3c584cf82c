package database

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema over its own connection, leaving the shared
// pool untouched. dsn must use the postgres:// scheme.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		log.Error("Failed to create migrator: ", err)
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Error("Failed to close migrator: ", errors.Join(srcErr, dbErr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("Failed to apply migrations: ", err)
		return err
	}

	if version, dirty, err := m.Version(); err == nil {
		log.Infof("Schema version %d (dirty=%v)", version, dirty)
	}
	return nil
}
