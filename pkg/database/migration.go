package database

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
)

// migrateLogger routes golang-migrate output to the service logger
type migrateLogger struct {
	logger ectologger.Logger
}

func (l migrateLogger) Verbose() bool { return false }

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debugf(format, v...)
}

// SchemaMigrator brings the catalog schema up to the newest migration in a folder
type SchemaMigrator struct {
	folder       string
	databaseName string
	logger       ectologger.Logger
}

func NewSchemaMigrator(logger ectologger.Logger, folder, databaseName string) *SchemaMigrator {
	return &SchemaMigrator{
		folder:       folder,
		databaseName: databaseName,
		logger:       logger,
	}
}

// Up applies every pending migration and returns the resulting schema version.
// A schema left dirty by an interrupted migration is refused.
func (m *SchemaMigrator) Up(db DB) (uint, error) {
	folder, err := filepath.Abs(m.folder)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid migration folder %s", m.folder)
	}
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		return 0, errors.Errorf("migration folder %s does not exist", folder)
	}

	driver, err := postgres.WithInstance(db.Unwrap().DB, &postgres.Config{DatabaseName: m.databaseName})
	if err != nil {
		return 0, errors.Wrap(err, "failed to create migration driver")
	}
	mg, err := migrate.NewWithDatabaseInstance("file://"+folder, m.databaseName, driver)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load migrations")
	}
	mg.Log = migrateLogger{logger: m.logger}

	before, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	if dirty {
		return before, errors.Errorf("catalog schema is dirty at version %d", before)
	}

	start := time.Now()
	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, errors.Wrapf(err, "migration from version %d failed", before)
	}

	after, _, err := mg.Version()
	if err != nil {
		return before, errors.Wrap(err, "failed to read schema version")
	}

	log := m.logger.WithFields(map[string]any{
		"from_version": before,
		"to_version":   after,
	})
	if after == before {
		log.Info("Catalog schema is up to date")
	} else {
		log.Infof("Catalog schema migrated in %s", time.Since(start))
	}
	return after, nil
}
