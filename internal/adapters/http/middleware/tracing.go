package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request named after the chi route and
// tags it with the request ID and the optional x-session-id header.
func Tracing(serviceName string, opts ...otelchi.Option) func(http.Handler) http.Handler {
	base := otelchi.Middleware(serviceName, opts...)

	return func(next http.Handler) http.Handler {
		return base(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := trace.SpanFromContext(r.Context())
			if span.IsRecording() {
				if reqID := chimw.GetReqID(r.Context()); reqID != "" {
					span.SetAttributes(attribute.String("request.id", reqID))
				}
				if sessionID := r.Header.Get("x-session-id"); sessionID != "" {
					span.SetAttributes(attribute.String("session.id", sessionID))
				}
			}
			next.ServeHTTP(w, r)
		}))
	}
}
