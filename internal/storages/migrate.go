package storage

import (
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/practice-sem-2/campus-chat-service/internal/storages/migrations"
)

// NewMigrate prepares the embedded schema migrations for the database at dsn.
// Both postgres:// and pgx:// urls are accepted.
func NewMigrate(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, migrationsURL(dsn))
}

// migrationsURL points a libpq style url at the pgx migrate driver.
func migrationsURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}
