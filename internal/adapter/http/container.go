package http

import (
	"context"
	"fmt"

	"todoitems/internal/adapter/database/postgres"
	pgrepository "todoitems/internal/adapter/database/postgres/repository"
	"todoitems/internal/adapter/database/sqlite"
	"todoitems/internal/adapter/database/sqlite/repository"
	"todoitems/internal/adapter/http/handler"
	"todoitems/internal/core/port"
	"todoitems/internal/core/service"
	"todoitems/pkg/config"
)

// Database is what the container needs from either backend.
type Database interface {
	handler.Pinger
	Close() error
}

type Container struct {
	DB Database

	TodoRepo    port.TodoRepository
	TodoUseCase port.TodoService

	TodoHandler   *handler.TodoHandler
	HealthHandler *handler.HealthHandler
}

// NewContainer opens the configured database and wires the todo stack on top of it.
func NewContainer(ctx context.Context, cfg *config.AppConfig, probe port.Telemetry, logger *config.LokiLogger) (*Container, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger.Zap())

		if err != nil {
			return nil, err
		}

		return newContainer(db, pgrepository.NewTodoRepository(db, probe), probe, logger), nil

	case config.DriverSQLite:
		db, err := sqlite.NewDB(sqlite.Config{
			DSN:             cfg.Database.Path,
			Name:            cfg.ServiceName,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			LogQueries:      cfg.Database.LogQueries,
		}, logger.Zap())

		if err != nil {
			return nil, err
		}

		return NewSQLiteContainer(db, probe, logger), nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

func NewSQLiteContainer(db *sqlite.DB, probe port.Telemetry, logger *config.LokiLogger) *Container {
	return newContainer(db, repository.NewTodoRepository(db, probe), probe, logger)
}

func newContainer(db Database, todoRepo port.TodoRepository, probe port.Telemetry, logger *config.LokiLogger) *Container {
	todoSvc := service.NewTodoService(todoRepo, probe)

	return &Container{
		DB: db,

		TodoRepo:    todoRepo,
		TodoUseCase: todoSvc,

		TodoHandler:   handler.NewTodoHandler(todoSvc, logger),
		HealthHandler: handler.NewHealthHandler(db, logger),
	}
}
