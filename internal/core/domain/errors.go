package domain

import (
	"errors"
	"net/http"
)

// TodoError is an error that knows the HTTP status and message it is answered with.
type TodoError struct {
	Status  int
	Message string
}

func (e *TodoError) Error() string {
	return e.Message
}

var (
	ErrInvalidPathVariable = &TodoError{
		Status:  http.StatusBadRequest,
		Message: "Path variable type is invalid!",
	}

	ErrItemNotFound = &TodoError{
		Status:  http.StatusNotFound,
		Message: "Todo item was not found",
	}

	ErrInvalidRequestBody = &TodoError{
		Status:  http.StatusBadRequest,
		Message: "Request body is invalid! Fields or it's values are possibly incorrect!",
	}

	ErrInvalidMarkup = &TodoError{
		Status:  http.StatusBadRequest,
		Message: "Invalid html tags found in request body!",
	}
)

// AsTodoError unwraps err down to the first *TodoError in its chain.
func AsTodoError(err error) (*TodoError, bool) {
	var todoErr *TodoError

	if errors.As(err, &todoErr) {
		return todoErr, true
	}

	return nil, false
}
