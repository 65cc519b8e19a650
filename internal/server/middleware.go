package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/hnrobert/lumgreet/internal/auth"
)

type ctxKey string

const ctxTokenID ctxKey = "token_id"

func (a *App) withAuthContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := a.readAuth(r); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxTokenID, id))
		}
		next.ServeHTTP(w, r)
	})
}

// readAuth returns the id of a valid bearer token, or "".
func (a *App) readAuth(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return ""
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	cl, err := auth.ParseHS256(a.secret, strings.TrimSpace(parts[1]))
	if err != nil {
		return ""
	}
	return cl.ID
}

func tokenIDFrom(r *http.Request) string {
	if v := r.Context().Value(ctxTokenID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (a *App) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokenIDFrom(r) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r)
	}
}
