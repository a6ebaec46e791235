// internal/api/auth.go
package api

import (
	"context"
	"net/http"
	"strconv"
)

// userIDHeader carries the authenticated user identity, installed by the
// gateway's auth middleware upstream of this service. Verification of the
// credential itself happens there, not here.
const userIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "userID"

// requireUser rejects requests without a resolvable user identity and
// stores the user id on the request context. Handlers pass the id
// explicitly into fetcher/reconciler calls rather than reading ambient
// state deeper down.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			respondWithError(w, http.StatusUnauthorized, "Missing or invalid "+userIDHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
