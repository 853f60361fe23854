package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"todoitems/internal/adapter/database/postgres"
	"todoitems/internal/core/domain"
	"todoitems/internal/core/port"
	tel "todoitems/internal/core/telemetry"
)

const (
	table  = "todos"
	entity = "todo"
)

var columns = []string{"id", "name", "description", "completed", "created_at", "updated_at"}

const returning = "RETURNING id, name, description, completed, created_at, updated_at"

type TodoRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
}

func NewTodoRepository(db *postgres.DB, telemetry port.Telemetry) port.TodoRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoRepository{db: db, telemetry: telemetry}
}

func scanTodo(row pgx.Row) (domain.Todo, error) {
	var todo domain.Todo

	err := row.Scan(&todo.ID, &todo.Name, &todo.Description, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)

	return todo, err
}

func (tr *TodoRepository) FindByID(ctx context.Context, id int64) (*domain.Todo, error) {
	ctx, span := tr.startSpan(ctx, "FindByID", "SELECT", map[string]interface{}{"todo.id": id})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		return nil, tr.fail(ctx, span, "FindByID", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "FindByID", entity, query, args)

	todo, err := scanTodo(tr.db.QueryRow(ctx, query, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		tr.succeed(ctx, span, "FindByID", startTime)
		return nil, nil
	}

	if err != nil {
		return nil, tr.fail(ctx, span, "FindByID", startTime, err)
	}

	tr.succeed(ctx, span, "FindByID", startTime)

	return &todo, nil
}

func (tr *TodoRepository) List(ctx context.Context, filter domain.TodoFilter, page domain.PageRequest) ([]domain.Todo, int, error) {
	ctx, span := tr.startSpan(ctx, "List", "SELECT", map[string]interface{}{
		"pagination.page":     page.Page,
		"pagination.per_page": page.PerPage,
	})
	defer span.End()

	startTime := time.Now()

	countQuery, countArgs, err := applyFilter(tr.db.QueryBuilder.Select("COUNT(*)").From(table), filter).ToSql()

	if err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	var total int

	if err := tr.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	query, args, err := applyFilter(tr.db.QueryBuilder.Select(columns...).From(table), filter).
		OrderBy("id ASC").
		Limit(uint64(page.PerPage)).
		Offset(uint64(page.Offset())).
		ToSql()

	if err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "List", entity, query, args)

	rows, err := tr.db.Query(ctx, query, args...)

	if err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	defer rows.Close()

	todos := []domain.Todo{}

	for rows.Next() {
		todo, err := scanTodo(rows)

		if err != nil {
			return nil, 0, tr.fail(ctx, span, "List", startTime, err)
		}

		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, tr.fail(ctx, span, "List", startTime, err)
	}

	span.SetAttributes(map[string]interface{}{"db.rows_returned": len(todos), "db.rows_total": total})
	tr.succeed(ctx, span, "List", startTime)

	return todos, total, nil
}

func (tr *TodoRepository) Insert(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, span := tr.startSpan(ctx, "Insert", "INSERT", nil)
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Insert(table).
		Columns("name", "description", "completed").
		Values(todo.Name, todo.Description, todo.Completed).
		Suffix(returning).
		ToSql()

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Insert", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Insert", entity, query, args)

	saved, err := scanTodo(tr.db.QueryRow(ctx, query, args...))

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Insert", startTime, err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "created", entity, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"completed": saved.Completed,
	})
	tr.succeed(ctx, span, "Insert", startTime)

	return saved, nil
}

func (tr *TodoRepository) Update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, span := tr.startSpan(ctx, "Update", "UPDATE", map[string]interface{}{"todo.id": todo.ID})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Update(table).
		Set("name", todo.Name).
		Set("description", todo.Description).
		Set("completed", todo.Completed).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": todo.ID}).
		Suffix(returning).
		ToSql()

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Update", entity, query, args)

	saved, err := scanTodo(tr.db.QueryRow(ctx, query, args...))

	if err != nil {
		return domain.Todo{}, tr.fail(ctx, span, "Update", startTime, err)
	}

	tr.telemetry.RecordBusinessEvent(ctx, "updated", entity, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"completed": saved.Completed,
	})
	tr.succeed(ctx, span, "Update", startTime)

	return saved, nil
}

func (tr *TodoRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tr.startSpan(ctx, "Delete", "DELETE", map[string]interface{}{"todo.id": id})
	defer span.End()

	startTime := time.Now()

	query, args, err := tr.db.QueryBuilder.Delete(table).Where(sq.Eq{"id": id}).ToSql()

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, err)
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Delete", entity, query, args)

	tag, err := tr.db.Exec(ctx, query, args...)

	if err != nil {
		return tr.fail(ctx, span, "Delete", startTime, err)
	}

	span.SetAttributes(map[string]interface{}{"db.rows_affected": tag.RowsAffected()})

	tr.telemetry.RecordBusinessEvent(ctx, "deleted", entity, strconv.FormatInt(id, 10), nil)
	tr.succeed(ctx, span, "Delete", startTime)

	return nil
}

func (tr *TodoRepository) startSpan(ctx context.Context, operation, sqlOperation string, attrs map[string]interface{}) (context.Context, port.Span) {
	spanAttrs := map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     table,
		"db.operation": sqlOperation,
	}

	for key, value := range attrs {
		spanAttrs[key] = value
	}

	return tr.telemetry.StartRepositorySpan(ctx, operation, entity, spanAttrs)
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
