package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"todoitems/pkg/tracing"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LokiLogger is a trace-aware zap logger that can also push entries to Loki.
type LokiLogger struct {
	Logger      *otelzap.Logger
	serviceName string
	lokiURL     string
	httpClient  *http.Client
	pending     sync.WaitGroup
}

type LokiLogEntry struct {
	Streams []LokiStream `json:"streams"`
}

type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewLokiLogger builds the logger. An empty lokiURL keeps logging local.
func NewLokiLogger(serviceName, lokiURL, level string) (*LokiLogger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)

		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}

		config.Level = zap.NewAtomicLevelAt(parsed)
	}

	zapLogger, err := config.Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return newLokiLogger(zapLogger, serviceName, lokiURL), nil
}

// NewNopLokiLogger discards everything. Meant for tests.
func NewNopLokiLogger() *LokiLogger {
	return newLokiLogger(zap.NewNop(), "test", "")
}

func newLokiLogger(zapLogger *zap.Logger, serviceName, lokiURL string) *LokiLogger {
	pushURL := ""

	if lokiURL != "" {
		pushURL = strings.TrimRight(lokiURL, "/") + "/loki/api/v1/push"
	}

	return &LokiLogger{
		Logger:      otelzap.New(zapLogger),
		serviceName: serviceName,
		lokiURL:     pushURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Zap exposes the underlying *zap.Logger for components that do not need trace correlation.
func (l *LokiLogger) Zap() *zap.Logger {
	return l.Logger.Logger
}

// Sync waits for in-flight Loki pushes and flushes the zap core.
func (l *LokiLogger) Sync() error {
	l.pending.Wait()
	return l.Logger.Sync()
}

func (l *LokiLogger) InfoWithTrace(ctx context.Context, msg string, fields ...zap.Field) {
	l.logWithTrace(ctx, zapcore.InfoLevel, msg, fields...)
}

func (l *LokiLogger) WarnWithTrace(ctx context.Context, msg string, fields ...zap.Field) {
	l.logWithTrace(ctx, zapcore.WarnLevel, msg, fields...)
}

func (l *LokiLogger) ErrorWithTrace(ctx context.Context, msg string, fields ...zap.Field) {
	l.logWithTrace(ctx, zapcore.ErrorLevel, msg, fields...)
}

func (l *LokiLogger) logWithTrace(ctx context.Context, level zapcore.Level, msg string, fields ...zap.Field) {
	switch level {
	case zapcore.ErrorLevel:
		l.Logger.Ctx(ctx).Error(msg, fields...)
	case zapcore.WarnLevel:
		l.Logger.Ctx(ctx).Warn(msg, fields...)
	default:
		l.Logger.Ctx(ctx).Info(msg, fields...)
	}

	if l.lokiURL == "" || !l.Zap().Core().Enabled(level) {
		return
	}

	entry, err := l.buildEntry(ctx, level, msg, fields)
	if err != nil {
		l.Logger.Ctx(ctx).Error("Failed to build Loki entry", zap.Error(err))
		return
	}

	l.pending.Add(1)

	go func() {
		defer l.pending.Done()
		l.push(entry)
	}()
}

func (l *LokiLogger) buildEntry(ctx context.Context, level zapcore.Level, msg string, fields []zap.Field) (LokiLogEntry, error) {
	encoder := zapcore.NewMapObjectEncoder()

	for _, field := range fields {
		field.AddTo(encoder)
	}

	logData := encoder.Fields
	logData["timestamp"] = time.Now().Format(time.RFC3339Nano)
	logData["level"] = level.String()
	logData["message"] = msg
	logData["service"] = l.serviceName

	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		logData["trace_id"] = traceID
		logData["span_id"] = tracing.GetSpanID(ctx)
	}

	line, err := json.Marshal(logData)
	if err != nil {
		return LokiLogEntry{}, err
	}

	return LokiLogEntry{
		Streams: []LokiStream{
			{
				Stream: map[string]string{
					"service": l.serviceName,
					"level":   level.String(),
				},
				Values: [][]string{
					{fmt.Sprintf("%d", time.Now().UnixNano()), string(line)},
				},
			},
		},
	}, nil
}

func (l *LokiLogger) push(entry LokiLogEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, l.lokiURL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
}
