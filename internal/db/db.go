package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrations embed.FS

type Database struct {
	Gorm   *gorm.DB
	SQL    *sql.DB
	Driver string
}

// Open connects to a sqlite3 or postgres database and wraps the pool in GORM.
// sqlite3 pools are pinned to a single connection: writers queue in the pool
// instead of failing with SQLITE_BUSY, and in-memory databases stay visible
// to every query.
func Open(driver, dsn string, logLevel logger.LogLevel) (*Database, error) {
	var (
		sqlDB     *sql.DB
		dialector gorm.Dialector
		err       error
	)

	switch driver {
	case "sqlite3":
		sqlDB, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		dialector = &sqlite.Dialector{Conn: sqlDB}
	case "postgres":
		sqlDB, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}

	return &Database{Gorm: gormDB, SQL: sqlDB, Driver: driver}, nil
}

func (d *Database) Close() error {
	if d.SQL != nil {
		return d.SQL.Close()
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.SQL.PingContext(ctx)
}

// MigrationDir is the embedded goose directory for the database's dialect.
func (d *Database) MigrationDir() string {
	if d.Driver == "postgres" {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

// PrepareMigrations points goose at the embedded migrations for this dialect.
func (d *Database) PrepareMigrations(log *zap.SugaredLogger) error {
	goose.SetBaseFS(migrations)
	if log != nil {
		goose.SetLogger(gooseLogger{log})
	}
	return goose.SetDialect(d.Driver)
}

// Migrate applies every pending migration.
func (d *Database) Migrate(ctx context.Context, log *zap.SugaredLogger) error {
	if err := d.PrepareMigrations(log); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.SQL, d.MigrationDir()); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// LogLevelFor picks the GORM log level for an environment name.
func LogLevelFor(env string) logger.LogLevel {
	switch env {
	case "prod":
		return logger.Warn
	case "test":
		return logger.Silent
	default:
		return logger.Info
	}
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatalf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Infof(strings.TrimSpace(format), v...)
}
