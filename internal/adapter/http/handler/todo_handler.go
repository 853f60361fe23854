package handler

import (
	"context"
	"net/http"

	. "todoitems/internal/adapter/http/helper"
	"todoitems/internal/core/domain"
	"todoitems/internal/core/model/request"
	"todoitems/internal/core/model/response"
	"todoitems/internal/core/port"
	"todoitems/internal/core/util"
	"todoitems/pkg/config"
	. "todoitems/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TodoHandler struct {
	svc    port.TodoService
	Logger *config.LokiLogger
}

func NewTodoHandler(svc port.TodoService, logger *config.LokiLogger) *TodoHandler {
	if logger == nil {
		logger = config.NewNopLokiLogger()
	}

	return &TodoHandler{
		svc:    svc,
		Logger: logger,
	}
}

func (t *TodoHandler) ListTodos(c *gin.Context) {
	ctx, span := t.startSpan(c, "ListTodos")
	defer span.End()

	query := request.ListQuery{
		Page:    c.Query(domain.QueryPage),
		PerPage: c.Query(domain.QueryPerPage),
	}

	if name, ok := c.GetQuery(domain.FieldName); ok {
		query.Name = &name
	}

	if completed, ok := c.GetQuery(domain.FieldCompleted); ok {
		query.Completed = &completed
	}

	page, err := t.svc.List(ctx, query)

	if err != nil {
		t.fail(c, span, "Failed to list todos", err)
		return
	}

	span.SetAttributes(attribute.Int("todo.total", page.Total))

	SendSuccess(c, http.StatusOK, page)
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (t *TodoHandler) GetTodo(c *gin.Context) {
	ctx, span := t.startSpan(c, "GetTodo")
	defer span.End()

	todo, err := t.svc.GetByID(ctx, c.Param("id"))

	if err != nil {
		t.fail(c, span, "Failed to get todo", err)
		return
	}

	SendSuccess(c, http.StatusOK, response.NewTodoResponse(todo))
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (t *TodoHandler) CreateTodo(c *gin.Context) {
	ctx, span := t.startSpan(c, "CreateTodo")
	defer span.End()

	todo, err := t.svc.Create(ctx, readPayload(c))

	if err != nil {
		t.fail(c, span, "Failed to create todo", err)
		return
	}

	span.SetAttributes(attribute.Int64("todo.id", todo.ID))

	SendSuccess(c, http.StatusCreated, response.NewTodoResponse(todo))
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (t *TodoHandler) UpdateTodo(c *gin.Context) {
	ctx, span := t.startSpan(c, "UpdateTodo")
	defer span.End()

	todo, err := t.svc.Update(ctx, c.Param("id"), readPayload(c))

	if err != nil {
		t.fail(c, span, "Failed to update todo", err)
		return
	}

	SendSuccess(c, http.StatusCreated, response.NewTodoResponse(todo))
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (t *TodoHandler) DeleteTodo(c *gin.Context) {
	ctx, span := t.startSpan(c, "DeleteTodo")
	defer span.End()

	if err := t.svc.Delete(ctx, c.Param("id")); err != nil {
		t.fail(c, span, "Failed to delete todo", err)
		return
	}

	SendNoContent(c)
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (t *TodoHandler) startSpan(c *gin.Context, operation string) (context.Context, trace.Span) {
	return CreateChildSpan(c.Request.Context(), "handler.todo."+operation, []attribute.KeyValue{
		attribute.String("handler.operation", operation),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})
}

// fail answers client errors with their own status and message. Anything
// else is logged and hidden behind a 500.
func (t *TodoHandler) fail(c *gin.Context, span trace.Span, msg string, err error) {
	defer func() { AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status()) }()

	if SendError(c, err) {
		return
	}

	AddSpanError(span, err)

	t.Logger.ErrorWithTrace(c.Request.Context(), msg,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	SendInternalError(c)
}

// readPayload decodes the body as a JSON object. Malformed or missing bodies
// yield a nil payload, which the service rejects as an invalid request body.
func readPayload(c *gin.Context) request.RawPayload {
	payload, err := util.ParamsToMap[request.RawPayload](c)

	if err != nil {
		return nil
	}

	return payload
}
