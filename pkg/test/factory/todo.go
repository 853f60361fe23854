package factory

import (
	fab "github.com/Goldziher/fabricator"
)

// NewTodo builds a T with random data; customData overrides fields by name.
func NewTodo[T any](customData ...map[string]any) T {
	instance := fab.New(*new(T))

	return instance.Build(customData...)
}

// NewTodos builds count instances sharing the same overrides.
func NewTodos[T any](count int, customData ...map[string]any) []T {
	items := make([]T, 0, count)

	for i := 0; i < count; i++ {
		items = append(items, NewTodo[T](customData...))
	}

	return items
}
