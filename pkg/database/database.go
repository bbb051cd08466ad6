package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jalvirtual/acars-dispatch/environments"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
)

// Open connects to the SQL backend selected by the storage driver and
// creates the schema if needed.
func Open(storage environments.StorageConfig, cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch storage.Driver {
	case environments.DriverMySQL:
		db, err = NewMySQLDB(cfg)
	case environments.DriverSQLite:
		db, err = NewSQLiteDB(storage.SQLitePath)
	default:
		return nil, fmt.Errorf("storage driver %q is not a SQL backend", storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Infof("Connected to MySQL database")
	return db, nil
}

// NewSQLiteDB opens a local database file. A single connection keeps
// writers serialised.
func NewSQLiteDB(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	logger.Infof("Opened SQLite database at %s", path)
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	var schema string

	switch db.DriverName() {
	case "mysql":
		schema = `
		CREATE TABLE IF NOT EXISTS acars_store (
			namespace VARCHAR(64) NOT NULL PRIMARY KEY,
			payload LONGTEXT NOT NULL,
			updated_at DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
		`
	default:
		schema = `
		CREATE TABLE IF NOT EXISTS acars_store (
			namespace TEXT NOT NULL PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
		`
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")

	return nil
}
