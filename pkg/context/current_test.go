package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentRoundTrip(t *testing.T) {
	ctx := SetCurrent(context.Background(), &Current{RequestID: "req-1", Method: "GET"})

	current, ok := FromContext(ctx)

	assert.True(t, ok)
	assert.Equal(t, "GET", current.Method)
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(context.Background())

	assert.False(t, ok)
	assert.Empty(t, RequestID(context.Background()))
}
