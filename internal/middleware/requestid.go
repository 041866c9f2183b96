package middleware

import (
	"context"
	"net/http"

	"github.com/segmentio/ksuid"
)

const (
	RequestIDHeader            = "X-Request-ID"
	ctxRequestID    contextKey = "request_id"
)

// RequestID propagates the caller's request ID or assigns a new ksuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = ksuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), ctxRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}
