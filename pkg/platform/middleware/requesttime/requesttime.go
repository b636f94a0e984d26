// Package requesttime pins a single "now" per HTTP request. Proof expiry
// math, audit timestamps and quota bookkeeping all read the same instant, so
// an entry never predates the decision it records.
package requesttime

import (
	"net/http"
	"time"

	"vidgate/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
