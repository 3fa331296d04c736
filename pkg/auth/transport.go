package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// SessionState is the read side of the session consulted for every outbound
// call.
type SessionState interface {
	IsActive(ctx context.Context) bool
	Token(ctx context.Context) string
}

type requestIDKey struct{}

// WithRequestID pins the X-Request-ID used for calls made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Transport attaches the session credential to outbound requests.
// A missing session never fails a call: the request goes out without an
// Authorization header and the server answers 401/403 if it cares.
type Transport struct {
	Base    http.RoundTripper
	Session SessionState
	Logger  *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, session SessionState) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		Base:    base,
		Session: session,
		Logger:  slog.Default().With("component", "auth-transport"),
	}
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// mutated; headers are set on a clone.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)

	if out.Header.Get("X-Request-ID") == "" {
		id := GetRequestID(ctx)
		if id == "" {
			id = uuid.New().String()
		}
		out.Header.Set("X-Request-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	authenticated := false
	if t.Session != nil && t.Session.IsActive(ctx) {
		if token := t.Session.Token(ctx); token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
			authenticated = true
		}
	}

	if t.Logger != nil {
		t.Logger.DebugContext(ctx, "outbound request",
			"method", out.Method,
			"url", out.URL.Redacted(),
			"authenticated", authenticated,
			"request_id", out.Header.Get("X-Request-ID"),
		)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
