package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// FrameKey is the context key for the frame number.
	FrameKey contextKey = "frame"

	// PassKey is the context key for the running pass name.
	PassKey contextKey = "pass"

	// ToolKey is the context key for the active tool.
	ToolKey contextKey = "tool"

	// SessionKey is the context key for tool session identifiers.
	SessionKey contextKey = "session"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// WithFrame adds a frame number to the context.
func WithFrame(ctx context.Context, frame uint64) context.Context {
	return context.WithValue(ctx, FrameKey, frame)
}

// GetFrame retrieves the frame number from the context.
func GetFrame(ctx context.Context) (uint64, bool) {
	frame, ok := ctx.Value(FrameKey).(uint64)
	return frame, ok
}

// WithPass adds a pass name to the context.
func WithPass(ctx context.Context, pass string) context.Context {
	return context.WithValue(ctx, PassKey, pass)
}

// GetPass retrieves the pass name from the context.
func GetPass(ctx context.Context) string {
	if pass, ok := ctx.Value(PassKey).(string); ok {
		return pass
	}
	return ""
}

// WithTool adds the active tool to the context.
func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, ToolKey, tool)
}

// GetTool retrieves the active tool from the context.
func GetTool(ctx context.Context) string {
	if tool, ok := ctx.Value(ToolKey).(string); ok {
		return tool
	}
	return ""
}

// WithSession adds a session identifier to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSession retrieves the session identifier from the context.
func GetSession(ctx context.Context) string {
	if session, ok := ctx.Value(SessionKey).(string); ok {
		return session
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// contextAttrs extracts common fields from context for logging.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if frame, ok := GetFrame(ctx); ok {
		attrs = append(attrs, slog.Uint64("frame", frame))
	}
	if pass := GetPass(ctx); pass != "" {
		attrs = append(attrs, slog.String("pass", pass))
	}
	if tool := GetTool(ctx); tool != "" {
		attrs = append(attrs, slog.String("tool", tool))
	}
	if session := GetSession(ctx); session != "" {
		attrs = append(attrs, slog.String("session", session))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}

	return attrs
}

// ContextHandler decorates records with the frame fields carried on the
// context passed to the *Context logging methods.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler wraps inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

// Enabled implements slog.Handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if attrs := contextAttrs(ctx); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
