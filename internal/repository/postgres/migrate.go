package postgres

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"blockdocs/db/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const prefixPlaceholder = "{{prefix}}"

// MigrateDirection selects which way RunMigrations moves the schema
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// RunMigrations applies the embedded migrations for the given table prefix.
// Each prefix keeps its own version table so dev_/test_/prod_ schemas move independently.
func RunMigrations(pool *pgxpool.Pool, tables *TableNames, direction MigrateDirection, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{
		MigrationsTable: tables.Prefix + "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(NewPrefixFS(migrations.Files, tables.Prefix), ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	switch direction {
	case MigrateUp:
		err = migrator.Up()
	case MigrateDown:
		err = migrator.Down()
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, verr := migrator.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", verr)
	}
	logger.Info("migrations applied",
		"direction", direction,
		"table_prefix", tables.Prefix,
		"version", version,
		"dirty", dirty,
	)

	return nil
}

// PrefixFS serves .sql files with the table prefix placeholder substituted
type PrefixFS struct {
	base   fs.FS
	prefix string
}

// NewPrefixFS wraps base so that {{prefix}} in .sql files reads as prefix
func NewPrefixFS(base fs.FS, prefix string) *PrefixFS {
	return &PrefixFS{base: base, prefix: prefix}
}

// ReadDir implements fs.ReadDirFS
func (p *PrefixFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(p.base, name)
}

// Open implements fs.FS
func (p *PrefixFS) Open(name string) (fs.File, error) {
	f, err := p.base.Open(name)
	if err != nil || path.Ext(name) != ".sql" {
		return f, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, err
	}
	rendered := strings.ReplaceAll(buf.String(), prefixPlaceholder, p.prefix)
	return &renderedFile{Reader: bytes.NewReader([]byte(rendered)), info: info}, nil
}

type renderedFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *renderedFile) Close() error               { return nil }
