package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"todoitems/internal/adapter/database/sqlite"
	"todoitems/internal/core/domain"
	"todoitems/internal/core/port"
	tel "todoitems/internal/core/telemetry"
)

const (
	table  = "todos"
	entity = "todo"
)

type TodoRepository struct {
	db        *sqlite.DB
	telemetry port.Telemetry
}

func NewTodoRepository(db *sqlite.DB, telemetry port.Telemetry) port.TodoRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoRepository{
		db:        db,
		telemetry: telemetry,
	}
}

func (tr *TodoRepository) FindByID(ctx context.Context, id int64) (*domain.Todo, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "FindByID", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     table,
		"db.operation": "SELECT",
		"todo.id":      id,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.byIDQuery(id)

	if err != nil {
		return nil, tr.fail(ctx, span, "FindByID", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "FindByID", entity, query, args)

	todo, err := tr.fetch(ctx, query, args)

	if err != nil {
		return nil, tr.fail(ctx, span, "FindByID", startTime, err)
	}

	if todo == nil {
		span.SetAttributes(map[string]interface{}{"db.rows_returned": 0})
	} else {
		span.SetAttributes(map[string]interface{}{"db.rows_returned": 1})
	}

	tr.succeed(ctx, span, "FindByID", startTime)

	return todo, nil
}

func (tr *TodoRepository) List(ctx context.Context, filter domain.TodoFilter, page domain.PageRequest) ([]domain.Todo, int, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "List", entity, map[string]interface{}{
		"db.system":           "sqlite",
		"db.table":            table,
		"db.operation":        "SELECT",
		"pagination.page":     page.Page,
		"pagination.per_page": page.PerPage,
		"filter.name":         filter.Name != nil,
		"filter.completed":    filter.Completed != nil,
	})
	defer span.End()

	startTime := time.Now()

	countQuery, countArgs, err := applyFilter(tr.db.QueryBuilder.Select("COUNT(*)").From(table), filter).ToSql()

	if err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "List", entity, countQuery, countArgs)

	var total int

	if err := tr.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	query, args, err := applyFilter(tr.db.QueryBuilder.Select(sqlite.TodoColumns...).From(table), filter).
		OrderBy("id ASC").
		Limit(uint64(page.PerPage)).
		Offset(uint64(page.Offset())).
		ToSql()

	if err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "List", entity, query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	defer rows.Close()

	todos := []domain.Todo{}

	for rows.Next() {
		todo, err := sqlite.ScanTodo(rows)

		if err != nil {
			return nil, 0, tr.fail(ctx, span, "List", startTime, err)
		}

		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	span.SetAttributes(map[string]interface{}{
		"db.rows_returned": len(todos),
		"db.rows_total":    total,
	})
	tr.succeed(ctx, span, "List", startTime)

	return todos, total, nil
}

func (tr *TodoRepository) Insert(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Insert", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     table,
		"db.operation": "INSERT",
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Insert(table).
		Columns("name", "description", "completed").
		Values(todo.Name, sqlite.NullString(todo.Description), todo.Completed).
		ToSql()

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Insert", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Insert", entity, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Insert", startTime, err)
	}

	id, err := result.LastInsertId()

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Insert", startTime, err)
	}

	saved, err := tr.reload(ctx, id)

	if err == nil && saved == nil {
		err = fmt.Errorf("todo %d missing after insert", id)
	}

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Insert", startTime, err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "created", entity, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"completed": saved.Completed,
	})

	span.SetAttributes(map[string]interface{}{"todo.id": saved.ID})
	tr.succeed(ctx, span, "Insert", startTime)

	return *saved, nil
}

func (tr *TodoRepository) Update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Update", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     table,
		"db.operation": "UPDATE",
		"todo.id":      todo.ID,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Update(table).
		Set("name", todo.Name).
		Set("description", sqlite.NullString(todo.Description)).
		Set("completed", todo.Completed).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": todo.ID}).
		ToSql()

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Update", entity, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	if rowsAffected, err := result.RowsAffected(); err == nil {
		span.SetAttributes(map[string]interface{}{"db.rows_affected": rowsAffected})
	}

	saved, err := tr.reload(ctx, todo.ID)

	if err == nil && saved == nil {
		err = fmt.Errorf("todo %d missing after update", todo.ID)
	}

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "updated", entity, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"completed": saved.Completed,
	})

	tr.succeed(ctx, span, "Update", startTime)

	return *saved, nil
}

func (tr *TodoRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tr.telemetry.StartRepositorySpan(ctx, "Delete", entity, map[string]interface{}{
		"db.system":    "sqlite",
		"db.table":     table,
		"db.operation": "DELETE",
		"todo.id":      id,
	})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Delete(table).
		Where(sq.Eq{"id": id}).
		ToSql()

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Delete", entity, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, err)
	}

	if rowsAffected, err := result.RowsAffected(); err == nil {
		span.SetAttributes(map[string]interface{}{"db.rows_affected": rowsAffected})
	}

	tr.telemetry.RecordBusinessEvent(ctx, "deleted", entity, strconv.FormatInt(id, 10), nil)
	tr.succeed(ctx, span, "Delete", startTime)

	return nil
}

func (tr *TodoRepository) byIDQuery(id int64) (string, []interface{}, error) {
	return tr.db.QueryBuilder.Select(sqlite.TodoColumns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
}

// fetch returns nil without an error when no row matches.
func (tr *TodoRepository) fetch(ctx context.Context, query string, args []interface{}) (*domain.Todo, error) {
	todo, err := sqlite.ScanTodo(tr.db.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &todo, nil
}

// reload reads a row back after a write inside the caller's span.
func (tr *TodoRepository) reload(ctx context.Context, id int64) (*domain.Todo, error) {
	query, args, err := tr.byIDQuery(id)

	if err != nil {
		return nil, err
	}

	return tr.fetch(ctx, query, args)
}

func applyFilter(query sq.SelectBuilder, filter domain.TodoFilter) sq.SelectBuilder {
	if filter.IsEmpty() {
		return query
	}

	if filter.Name != nil {
		query = query.Where(sq.Eq{"name": *filter.Name})
	}

	if filter.Completed != nil {
		query = query.Where(sq.Eq{"completed": *filter.Completed})
	}

	return query
}

func (tr *TodoRepository) fail(ctx context.Context, span port.Span, operation string, startTime time.Time, err error) error {
	span.SetStatus("error", err.Error())
	span.RecordError(err)
	tr.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(startTime), err)

	return err
}

func (tr *TodoRepository) succeed(ctx context.Context, span port.Span, operation string, startTime time.Time) {
	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(startTime), nil)
}
