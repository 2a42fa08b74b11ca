package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/apperr"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/httpx"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/service"
)

type inboxResponse struct {
	Conversation *conversationDTO `json:"conversation"`
	IsAdmin      bool             `json:"isAdmin"`
}

func (a *api) handleInboxGet(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	conv, err := a.Inbox.ConversationForUser(r.Context(), u.ID)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, inboxResponse{Conversation: toConversationDTO(conv), IsAdmin: a.isAdmin(u)})
}

func (a *api) handleInboxCreate(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	conv, err := a.Inbox.EnsureConversation(r.Context(), u.ID, u.Email)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"conversationId": conv.ID.String()})
}

func (a *api) handleInboxMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.Inbox.UserMessages(r.Context(), currentUser(r).ID)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]messageDTO{"messages": toMessageDTOs(msgs)})
}

func (a *api) handleInboxPost(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		httpx.WriteMessage(w, r, apperr.CodeBadRequest, err.Error())
		return
	}
	u := currentUser(r)
	msg, err := a.Inbox.PostUserMessage(r.Context(), u.ID, u.Email, req.Body)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]messageDTO{"message": toMessageDTO(*msg)})
}

func (a *api) handleInboxRead(w http.ResponseWriter, r *http.Request) {
	if err := a.Inbox.MarkReadByUser(r.Context(), currentUser(r).ID); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// parseLimit falls back to the default for a missing or malformed value and
// clamps everything else.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return service.DefaultListLimit
	}
	return service.ClampLimit(n)
}

func (a *api) handleAdminInboxList(w http.ResponseWriter, r *http.Request) {
	convs, err := a.Inbox.ListConversations(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]conversationDTO{"conversations": toConversationDTOs(convs)})
}

func (a *api) handleAdminMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	msgs, err := a.Inbox.ConversationMessages(r.Context(), id)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]messageDTO{"messages": toMessageDTOs(msgs)})
}

func (a *api) handleAdminPost(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req postMessageRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		httpx.WriteMessage(w, r, apperr.CodeBadRequest, err.Error())
		return
	}
	msg, err := a.Inbox.PostAdminMessage(r.Context(), currentUser(r).ID, id, req.Body)
	if err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]messageDTO{"message": toMessageDTO(*msg)})
}

func (a *api) handleAdminRead(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(w, r)
	if !ok {
		return
	}
	if err := a.Inbox.MarkReadByAdmin(r.Context(), id); err != nil {
		httpx.WriteErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteMessage(w, r, apperr.CodeBadRequest, "invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}
