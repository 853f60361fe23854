package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"todoitems/internal/core/domain"
	"todoitems/internal/core/model/request"
	"todoitems/internal/core/model/response"
	"todoitems/internal/core/port"
	"todoitems/internal/core/sanitize"
	tel "todoitems/internal/core/telemetry"
	"todoitems/internal/core/util"
	"todoitems/internal/core/validation"
)

const serviceName = "todo"

type TodoService struct {
	repo      port.TodoRepository
	validator port.Validator
	sanitizer port.Sanitizer
	telemetry port.Telemetry
}

func NewTodoService(repo port.TodoRepository, telemetry port.Telemetry) *TodoService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TodoService{
		repo:      repo,
		validator: validation.NewValidator(),
		sanitizer: sanitize.NewSanitizer(),
		telemetry: telemetry,
	}
}

func (ts *TodoService) List(ctx context.Context, query request.ListQuery) (page *response.PageResponse, err error) {
	pageRequest := domain.NewPageRequest(
		util.ParsePositiveInt(query.Page, domain.DefaultPage),
		util.ParsePositiveInt(query.PerPage, domain.DefaultPerPage),
	)

	ctx, finish := ts.trace(ctx, "List", map[string]interface{}{
		"pagination.page":     pageRequest.Page,
		"pagination.per_page": pageRequest.PerPage,
	})
	defer func() { finish(err) }()

	filter := domain.TodoFilter{Name: query.Name}

	if query.Completed != nil {
		completed, ok := validation.ParseBool(*query.Completed)

		// nothing is stored with a completed value that is not a boolean
		if !ok {
			return response.NewPageResponse(nil, pageRequest, 0), nil
		}

		filter.Completed = &completed
	}

	todos, total, err := ts.repo.List(ctx, filter, pageRequest)

	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	return response.NewPageResponse(todos, pageRequest, total), nil
}

func (ts *TodoService) GetByID(ctx context.Context, rawID string) (todo domain.Todo, err error) {
	ctx, finish := ts.trace(ctx, "GetByID", map[string]interface{}{"todo.raw_id": rawID})
	defer func() { finish(err) }()

	return ts.findExisting(ctx, rawID)
}

func (ts *TodoService) Create(ctx context.Context, payload request.RawPayload) (todo domain.Todo, err error) {
	ctx, finish := ts.trace(ctx, "Create", nil)
	defer func() { finish(err) }()

	clean, err := ts.prepare(payload)

	if err != nil {
		return domain.Todo{}, err
	}

	todo, err = ts.repo.Insert(ctx, domain.Todo{
		Name:        clean.Name,
		Description: clean.Description,
		Completed:   clean.IsCompleted(),
	})

	if err != nil {
		return domain.Todo{}, fmt.Errorf("insert todo: %w", err)
	}

	return todo, nil
}

func (ts *TodoService) Update(ctx context.Context, rawID string, payload request.RawPayload) (todo domain.Todo, err error) {
	ctx, finish := ts.trace(ctx, "Update", map[string]interface{}{"todo.raw_id": rawID})
	defer func() { finish(err) }()

	existing, err := ts.findExisting(ctx, rawID)

	if err != nil {
		return domain.Todo{}, err
	}

	clean, err := ts.prepare(payload)

	if err != nil {
		return domain.Todo{}, err
	}

	existing.Name = clean.Name
	existing.Description = clean.Description
	existing.Completed = clean.IsCompleted()

	todo, err = ts.repo.Update(ctx, existing)

	if err != nil {
		return domain.Todo{}, fmt.Errorf("update todo %d: %w", existing.ID, err)
	}

	return todo, nil
}

func (ts *TodoService) Delete(ctx context.Context, rawID string) (err error) {
	ctx, finish := ts.trace(ctx, "Delete", map[string]interface{}{"todo.raw_id": rawID})
	defer func() { finish(err) }()

	existing, err := ts.findExisting(ctx, rawID)

	if err != nil {
		return err
	}

	if err := ts.repo.Delete(ctx, existing.ID); err != nil {
		return fmt.Errorf("delete todo %d: %w", existing.ID, err)
	}

	return nil
}

func (ts *TodoService) findExisting(ctx context.Context, rawID string) (domain.Todo, error) {
	id, err := util.ParsePathID(rawID)

	if err != nil {
		return domain.Todo{}, err
	}

	todo, err := ts.repo.FindByID(ctx, id)

	if err != nil {
		return domain.Todo{}, fmt.Errorf("find todo %d: %w", id, err)
	}

	if todo == nil {
		return domain.Todo{}, fmt.Errorf("todo %s: %w", strconv.FormatInt(id, 10), domain.ErrItemNotFound)
	}

	return *todo, nil
}

// prepare runs the validator and then the sanitizer over a raw payload.
func (ts *TodoService) prepare(payload request.RawPayload) (request.TodoPayload, error) {
	valid, err := ts.validator.Validate(payload)

	if err != nil {
		return request.TodoPayload{}, err
	}

	return ts.sanitizer.Sanitize(valid)
}

func (ts *TodoService) trace(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, operation, attrs)

	return ctx, func(err error) {
		ts.telemetry.RecordServiceOperation(ctx, serviceName, operation, time.Since(start), err)
		span.End()
	}
}
