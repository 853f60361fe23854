package sanitize

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"todoitems/internal/core/domain"
	"todoitems/internal/core/model/request"
)

var delimiters = strings.NewReplacer("<", "", ">", "")

// Sanitizer strips markup from the free-text fields of a payload.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns a copy of payload with name and description reduced to plain text.
// It fails with domain.ErrInvalidMarkup when a present text field ends up empty.
func (s *Sanitizer) Sanitize(payload request.TodoPayload) (request.TodoPayload, error) {
	name := s.Clean(payload.Name)

	if name == "" {
		return request.TodoPayload{}, fmt.Errorf("%w: %s is empty once markup is removed", domain.ErrInvalidMarkup, domain.FieldName)
	}

	sanitized := request.TodoPayload{
		Name:      name,
		Completed: payload.Completed,
	}

	if payload.Description != nil {
		description := s.Clean(*payload.Description)

		if description == "" {
			return request.TodoPayload{}, fmt.Errorf("%w: %s is empty once markup is removed", domain.ErrInvalidMarkup, domain.FieldDescription)
		}

		sanitized.Description = &description
	}

	return sanitized, nil
}

// Clean removes tags (and the content of script and style elements), then any
// stray tag delimiter, and trims the result.
func (s *Sanitizer) Clean(text string) string {
	stripped := html.UnescapeString(s.policy.Sanitize(text))

	return strings.TrimSpace(delimiters.Replace(stripped))
}
