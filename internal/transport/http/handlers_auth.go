package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/httpx"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/identity"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/netutil"
	obsmw "github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/middleware"
)

func (a *api) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		httpx.WriteMessage(w, r, apperr.CodeBadRequest, err.Error())
		return
	}
	if _, err := a.Sessions.IssueMagicLink(r.Context(), req.Email); err != nil {
		httpx.WriteError(w, r, apperr.CodeServerError, err)
		return
	}
	slog.Info("magic link requested",
		"client_ip", netutil.ClientIP(r),
		"request_id", obsmw.RequestIDFromContext(r.Context()),
	)
	httpx.WriteJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (a *api) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteError(w, r, apperr.CodeMissingToken, nil)
		return
	}
	session, user, err := a.Sessions.Exchange(token)
	if err != nil {
		httpx.WriteError(w, r, authCode(err), err)
		return
	}
	ttl := a.Sessions.SessionTTL()
	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookie,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Options.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
	slog.Info("session started", "user_id", user.ID, "request_id", obsmw.RequestIDFromContext(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, map[string]identity.User{"user": user})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Options.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]identity.User{"user": currentUser(r)})
}
