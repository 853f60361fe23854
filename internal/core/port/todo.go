package port

import (
	"context"

	"todoitems/internal/core/domain"
	"todoitems/internal/core/model/request"
	"todoitems/internal/core/model/response"
)

type TodoRepository interface {
	// FindByID returns nil and no error when no row has the id.
	FindByID(ctx context.Context, id int64) (*domain.Todo, error)
	List(ctx context.Context, filter domain.TodoFilter, page domain.PageRequest) ([]domain.Todo, int, error)
	Insert(ctx context.Context, todo domain.Todo) (domain.Todo, error)
	Update(ctx context.Context, todo domain.Todo) (domain.Todo, error)
	Delete(ctx context.Context, id int64) error
}

type TodoService interface {
	List(ctx context.Context, query request.ListQuery) (*response.PageResponse, error)
	GetByID(ctx context.Context, rawID string) (domain.Todo, error)
	Create(ctx context.Context, payload request.RawPayload) (domain.Todo, error)
	Update(ctx context.Context, rawID string, payload request.RawPayload) (domain.Todo, error)
	Delete(ctx context.Context, rawID string) error
}
