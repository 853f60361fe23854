package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"todoitems/internal/core/domain"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)

	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	return recorder
}

func TestOTELProbe_RepositorySpan(t *testing.T) {
	RegisterTestingT(t)
	recorder := withRecorder(t)

	metrics := NewAppMetrics(prometheus.NewRegistry())
	probe := NewOTELProbe(zap.NewNop(), metrics)

	ctx, span := probe.StartRepositorySpan(context.Background(), "Insert", "todo", map[string]interface{}{
		"db.table": "todos",
		"todo.id":  int64(4),
	})
	probe.RecordRepositoryOperation(ctx, "Insert", "todo", 3*time.Millisecond, nil)
	span.End()

	ended := recorder.Ended()
	Expect(ended).To(HaveLen(1))
	Expect(ended[0].Name()).To(Equal("repository.todo.Insert"))
	Expect(ended[0].Status().Code).To(Equal(codes.Ok))

	Expect(testutil.CollectAndCount(metrics.databaseOperations)).To(Equal(1))
}

func TestOTELProbe_ServiceOperationOutcomes(t *testing.T) {
	RegisterTestingT(t)
	recorder := withRecorder(t)

	metrics := NewAppMetrics(prometheus.NewRegistry())
	probe := NewOTELProbe(nil, metrics)

	ctx, span := probe.StartServiceSpan(context.Background(), "todo", "GetByID", nil)
	probe.RecordServiceOperation(ctx, "todo", "GetByID", time.Millisecond, fmt.Errorf("todo 9: %w", domain.ErrItemNotFound))
	span.End()

	ctx, span = probe.StartServiceSpan(context.Background(), "todo", "Create", nil)
	probe.RecordServiceOperation(ctx, "todo", "Create", time.Millisecond, errors.New("disk full"))
	span.End()

	ended := recorder.Ended()
	Expect(ended).To(HaveLen(2))
	Expect(ended[0].Status().Code).To(Equal(codes.Unset))
	Expect(ended[1].Status().Code).To(Equal(codes.Error))

	Expect(testutil.ToFloat64(metrics.todoOperations.WithLabelValues("GetByID", "error"))).To(Equal(1.0))
	Expect(testutil.ToFloat64(metrics.todoOperations.WithLabelValues("Create", "error"))).To(Equal(1.0))
}

func TestOTELProbe_BusinessEventIsAddedToSpan(t *testing.T) {
	RegisterTestingT(t)
	recorder := withRecorder(t)

	probe := NewOTELProbe(zap.NewNop(), nil)

	ctx, span := probe.StartRepositorySpan(context.Background(), "Delete", "todo", nil)
	probe.RecordBusinessEvent(ctx, "deleted", "todo", "12", map[string]interface{}{"name": "Task"})
	span.End()

	ended := recorder.Ended()
	Expect(ended).To(HaveLen(1))
	Expect(ended[0].Events()).To(HaveLen(1))
	Expect(ended[0].Events()[0].Name).To(Equal("todo.deleted"))
}

func TestNoOpProbe(t *testing.T) {
	RegisterTestingT(t)

	probe := NewNoOpProbe()
	ctx := context.Background()

	newCtx, span := probe.StartServiceSpan(ctx, "todo", "List", nil)
	Expect(newCtx).To(Equal(ctx))

	span.SetAttributes(map[string]interface{}{"a": 1})
	span.SetStatus("ok", "")
	span.RecordError(errors.New("ignored"))
	span.End()
}
