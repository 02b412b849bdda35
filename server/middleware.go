package server

import (
	"context"
	"net/http"
	"strings"

	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

type userCtxKey struct{}

// requireUser resolves the X-User-ID header into a user row, creating the
// user on first contact. Requests without the header are rejected.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		externalID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if externalID == "" {
			respondError(w, http.StatusUnauthorized, "X-User-ID header is required")
			return
		}

		user, err := s.store.GetOrCreateUser(r.Context(), externalID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to resolve user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
	})
}

func userFrom(r *http.Request) (*statex.User, bool) {
	user, ok := r.Context().Value(userCtxKey{}).(*statex.User)
	return user, ok && user != nil
}
