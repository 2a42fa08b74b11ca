package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/httpx"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/identity"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/metrics"
	obsmw "github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/middleware"
)

type modeKey struct{}

func withMode(ctx context.Context, m domain.Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, m)
}

// modeFromContext returns the mode the write guard admitted the request under.
func modeFromContext(ctx context.Context) domain.Mode {
	if m, ok := ctx.Value(modeKey{}).(domain.Mode); ok {
		return m
	}
	return ""
}

func (a *api) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := a.Auth.Authenticate(r)
		if err != nil {
			httpx.WriteError(w, r, authCode(err), err)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), u)))
	})
}

func (a *api) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := identity.UserFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, r, apperr.CodeUnauthenticated, nil)
			return
		}
		if !a.isAdmin(u) {
			httpx.WriteError(w, r, apperr.CodeForbidden, errors.New("not an admin"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeGuard reads the system mode once and rejects the request before the
// handler runs when writes are off. An unreadable mode rejects as well.
func (a *api) writeGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, err := a.System.Status(r.Context())
		if err != nil {
			httpx.WriteError(w, r, apperr.CodeServerError, err)
			return
		}
		if !status.Mode.AllowsWrites() {
			metrics.WriteGuardRejectionsTotal.WithLabelValues(routeLabel(r)).Inc()
			slog.Warn("write rejected in read-only mode",
				"path", r.URL.Path,
				"request_id", obsmw.RequestIDFromContext(r.Context()),
				"trace_id", obsmw.TraceIDFromContext(r.Context()),
			)
			httpx.WriteError(w, r, apperr.CodeReadOnly, nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withMode(r.Context(), status.Mode)))
	})
}

func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func authCode(err error) apperr.Code {
	switch {
	case errors.Is(err, identity.ErrMissingToken):
		return apperr.CodeMissingToken
	case errors.Is(err, identity.ErrInvalidToken):
		return apperr.CodeUnauthenticated
	}
	return apperr.CodeServerError
}

func currentUser(r *http.Request) identity.User {
	u, _ := identity.UserFromContext(r.Context())
	return u
}
