package sqlite

import (
	"database/sql"

	"todoitems/internal/core/domain"
)

// TodoColumns is the column order ScanTodo expects.
var TodoColumns = []string{"id", "name", "description", "completed", "created_at", "updated_at"}

type RowScanner interface {
	Scan(dest ...any) error
}

func ScanTodo(row RowScanner) (domain.Todo, error) {
	var (
		todo        domain.Todo
		description sql.NullString
	)

	err := row.Scan(&todo.ID, &todo.Name, &description, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)

	if err != nil {
		return domain.Todo{}, err
	}

	if description.Valid {
		todo.Description = &description.String
	}

	return todo, nil
}

// NullString maps a nil pointer to SQL NULL.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}
