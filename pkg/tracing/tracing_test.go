package tracing

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpanWrapper(t *testing.T) {
	RegisterTestingT(t)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(previous)

	var traceID string

	err := SpanWrapper(context.Background(), "work", []attribute.KeyValue{attribute.String("k", "v")}, func(ctx context.Context) error {
		traceID = GetTraceID(ctx)
		Expect(GetSpanID(ctx)).ToNot(BeEmpty())
		return errors.New("failed")
	})

	Expect(err).To(MatchError("failed"))
	Expect(traceID).ToNot(BeEmpty())

	ended := recorder.Ended()
	Expect(ended).To(HaveLen(1))
	Expect(ended[0].Name()).To(Equal("work"))
	Expect(ended[0].Status().Code).To(Equal(codes.Error))
}

func TestGetTraceID_WithoutSpan(t *testing.T) {
	RegisterTestingT(t)

	Expect(GetTraceID(context.Background())).To(BeEmpty())
	Expect(GetSpanID(context.Background())).To(BeEmpty())
}
