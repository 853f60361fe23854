package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/squirrel"

	_ "github.com/mattn/go-sqlite3"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.uber.org/zap"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rs/zerolog"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	DSN             string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

type DB struct {
	*sql.DB
	QueryBuilder *squirrel.StatementBuilderType
}

// NewDB opens the database with tracing (and query logging when enabled) and applies the migrations.
func NewDB(cfg Config, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := otelsql.Open("sqlite3", cfg.DSN,
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName(cfg.Name),
	)

	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if cfg.LogQueries {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		queryLogger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "sqlite").Logger()

		logged := sqldblogger.OpenDriver(cfg.DSN, sqlDB.Driver(), zerologadapter.New(queryLogger),
			sqldblogger.WithSQLQueryAsMessage(true),
		)

		_ = sqlDB.Close()
		sqlDB = logged
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := RunMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info("SQLite database ready",
		zap.String("name", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Bool("log_queries", cfg.LogQueries))

	queryBuilder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	return &DB{
		DB:           sqlDB,
		QueryBuilder: &queryBuilder,
	}, nil
}

// RunMigrations applies the embedded migrations on db. The driver is not closed
// so that in-memory databases survive the run.
func RunMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")

	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})

	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)

	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
