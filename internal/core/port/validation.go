package port

import "todoitems/internal/core/model/request"

type Validator interface {
	Validate(payload request.RawPayload) (request.TodoPayload, error)
}

type Sanitizer interface {
	Sanitize(payload request.TodoPayload) (request.TodoPayload, error)
}
