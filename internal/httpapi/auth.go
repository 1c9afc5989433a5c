package httpapi

import (
	"context"
	"errors"
	"net/http"

	"inventory/api/internal/auth"
	"inventory/api/internal/models"
)

type authContextKey struct{}

// RequireUser rejects the request with 401 or 403 unless its bearer token
// resolves to a user, and hands that user to next through the context.
func (h *Handler) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.Authorize(r.Context(), bearerToken(r.Header.Get("Authorization")))
		if err != nil {
			status, code, message := classifyAuthError(err)
			// The token was genuine but its subject is gone; the caller gets no access.
			if errors.Is(err, auth.ErrUserNotFound) {
				status = http.StatusForbidden
			}
			h.metrics.RecordAuth("authorize", code)
			writeError(w, status, code, message)
			return
		}
		h.metrics.RecordAuth("authorize", "ok")
		ctx := context.WithValue(r.Context(), authContextKey{}, user)
		next(w, r.WithContext(ctx))
	}
}

func userFromContext(ctx context.Context) (models.User, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
