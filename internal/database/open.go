package database

import (
	"errors"
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// DriverSQLite selects the embedded SQLite database.
	DriverSQLite = "sqlite"
	// DriverPostgres selects PostgreSQL through pgx.
	DriverPostgres = "postgres"
	// DriverMySQL selects MySQL.
	DriverMySQL = "mysql"
)

var errMissingDSN = errors.New("database dsn is required")

// OpenConfig selects the relational backend.
type OpenConfig struct {
	Driver     string
	SQLitePath string
	DSN        string
}

// Open establishes a connection for the configured driver and creates the tables.
func Open(cfg OpenConfig, logger *zap.Logger) (*Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSQLite, "":
		return OpenSQLite(cfg.SQLitePath, logger)
	case DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errMissingDSN
		}
		return openDialector(postgres.Open(cfg.DSN), 0, logger)
	case DriverMySQL:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errMissingDSN
		}
		return openDialector(mysql.Open(cfg.DSN), 0, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenSQLite establishes a SQLite connection and creates the tables.
func OpenSQLite(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return openDialector(sqlite.Open(path), 1, logger)
}

func openDialector(dialector gorm.Dialector, maxOpenConns int, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}

	store, err := NewStore(db, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("dialect", dialector.Name()))
	}
	return store, nil
}
