package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/httpx"
	obsmw "github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/middleware"
)

func (a *api) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.System.Status(r.Context())
	if err != nil {
		httpx.WriteError(w, r, apperr.CodeServerError, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=30")
	httpx.WriteJSON(w, http.StatusOK, systemStatusDTO{Mode: st.Mode, UpdatedAt: st.UpdatedAt, UpdatedBy: st.UpdatedBy})
}

// handleSetSystemMode runs without the write guard; it is how READ_ONLY is
// lifted.
func (a *api) handleSetSystemMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		httpx.WriteMessage(w, r, apperr.CodeBadRequest, err.Error())
		return
	}
	u := currentUser(r)
	st, err := a.System.SetMode(r.Context(), domain.Mode(req.Mode), u.Email)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	slog.Info("system mode changed", "mode", st.Mode, "by", u.Email, "request_id", obsmw.RequestIDFromContext(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, systemStatusDTO{Mode: st.Mode, UpdatedAt: st.UpdatedAt, UpdatedBy: st.UpdatedBy})
}

func (a *api) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if err := a.Presence.Heartbeat(r.Context(), u.ID, u.Email); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *api) handlePresenceCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.Presence.CountOnline(r.Context())
	if err != nil {
		httpx.WriteError(w, r, apperr.CodeServerError, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

type giftRevealResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

func (a *api) handleGiftReveal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	token, err := a.Gifts.Reveal(r.Context(), id)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	slog.Info("gift revealed",
		"gift_id", id,
		"mode", modeFromContext(r.Context()),
		"request_id", obsmw.RequestIDFromContext(r.Context()),
		"trace_id", obsmw.TraceIDFromContext(r.Context()),
	)
	httpx.WriteJSON(w, http.StatusOK, giftRevealResponse{OK: true, Token: token})
}
