package request

// RawPayload is the decoded JSON body of a write request. It is nil when the
// body is missing or is not a JSON object.
type RawPayload map[string]any

// TodoPayload is a payload that passed validation.
type TodoPayload struct {
	Name        string  `json:"name" validate:"required,max=80"`
	Description *string `json:"description" validate:"omitempty,max=750"`
	Completed   *bool   `json:"completed" validate:"required"`
}

func (p TodoPayload) IsCompleted() bool {
	return p.Completed != nil && *p.Completed
}

// ListQuery carries the raw listing query parameters. Absent parameters are nil.
type ListQuery struct {
	Name      *string
	Completed *string
	Page      string
	PerPage   string
}
