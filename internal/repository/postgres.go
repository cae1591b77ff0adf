package repository

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	// Driver for database migrations from a Postgres target.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// Driver for file-based migration sources.
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"support-chat-broker/internal/models"
)

// Postgres is the sqlx-backed Repository implementation. It wraps *sqlx.DB
// with a settings cache, grounded on the teacher's DB.columnCache idiom
// (a single RWMutex guarding a small hot-path cache in front of the
// authoritative store).
type Postgres struct {
	db *sqlx.DB

	settingsMu    sync.RWMutex
	settingsCache *models.AppSettings
}

// NewPostgres connects to dbURL, configures the pool, and pings it.
func NewPostgres(dbURL string) (*Postgres, error) {
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Println("repository: connected to postgres")
	return &Postgres{db: db}, nil
}

// Migrate applies all pending migrations from migrationsPath.
func (p *Postgres) Migrate(databaseURL, migrationsPath string) error {
	sourceURL := fmt.Sprintf("file://%s", migrationsPath)

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Printf("repository: could not read migration version: %v", err)
	}
	if dirty {
		return fmt.Errorf("database is at migration version %d but marked dirty", version)
	}
	if !errors.Is(err, migrate.ErrNilVersion) {
		log.Printf("repository: migrations up-to-date at version %d", version)
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

var _ Repository = (*Postgres)(nil)
