package response

import (
	"todoitems/internal/core/domain"
)

type TodoResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

func NewTodoResponse(todo domain.Todo) TodoResponse {
	return TodoResponse{
		ID:          todo.ID,
		Name:        todo.Name,
		Description: todo.Description,
		Completed:   todo.Completed,
	}
}

type PageResponse struct {
	CurrentPage int            `json:"current_page"`
	PerPage     int            `json:"per_page"`
	Total       int            `json:"total"`
	LastPage    int            `json:"last_page"`
	Data        []TodoResponse `json:"data"`
}

func NewPageResponse(todos []domain.Todo, page domain.PageRequest, total int) *PageResponse {
	data := make([]TodoResponse, 0, len(todos))

	for _, todo := range todos {
		data = append(data, NewTodoResponse(todo))
	}

	return &PageResponse{
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
		Total:       total,
		LastPage:    page.LastPage(total),
		Data:        data,
	}
}

type ErrorResponse struct {
	Status       int    `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
