package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/content"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/httpx"
)

type readerAccessResponse struct {
	HasAccess bool   `json:"hasAccess"`
	Email     string `json:"email,omitempty"`
}

func (a *api) handleReaderAccess(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	ok, err := a.Access.HasAccess(r.Context(), u.Email)
	if err != nil {
		httpx.WriteError(w, r, apperr.CodeServerError, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, readerAccessResponse{HasAccess: ok, Email: u.Email})
}

func (a *api) handleReaderStories(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	ok, err := a.Access.HasAccess(r.Context(), u.Email)
	if err != nil {
		httpx.WriteError(w, r, apperr.CodeServerError, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, apperr.CodeNoAccess, errors.New("email not on allow-list"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]content.Story{"stories": a.Library.Stories()})
}

func (a *api) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string][]content.PlaylistView{"playlists": a.Library.Playlists()})
}

func (a *api) handleAudio(w http.ResponseWriter, r *http.Request) {
	if a.Audio == nil {
		httpx.WriteError(w, r, apperr.CodeServerMisconfigured, errors.New("audio storage not configured"))
		return
	}
	a.Audio.Serve(w, r, chi.URLParam(r, "*"))
}
