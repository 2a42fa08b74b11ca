package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
)

const maxBodyBytes = 64 << 10

type magicLinkRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type setModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=SAFE READ_ONLY"`
}

type conversationDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	UserEmail       string     `json:"userEmail"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastMessageAt   *time.Time `json:"lastMessageAt"`
	LastAdminReadAt *time.Time `json:"lastAdminReadAt"`
	LastUserReadAt  *time.Time `json:"lastUserReadAt"`
}

func toConversationDTO(c *domain.Conversation) *conversationDTO {
	if c == nil {
		return nil
	}
	return &conversationDTO{
		ID:              c.ID.String(),
		UserID:          c.UserID,
		UserEmail:       c.UserEmail,
		CreatedAt:       c.CreatedAt,
		LastMessageAt:   c.LastMessageAt,
		LastAdminReadAt: c.LastAdminReadAt,
		LastUserReadAt:  c.LastUserReadAt,
	}
}

func toConversationDTOs(in []domain.Conversation) []conversationDTO {
	out := make([]conversationDTO, 0, len(in))
	for i := range in {
		out = append(out, *toConversationDTO(&in[i]))
	}
	return out
}

type messageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	FromAdmin      bool      `json:"fromAdmin"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMessageDTO(m domain.Message) messageDTO {
	return messageDTO{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID,
		FromAdmin:      m.FromAdmin,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}

func toMessageDTOs(in []domain.Message) []messageDTO {
	out := make([]messageDTO, 0, len(in))
	for _, m := range in {
		out = append(out, toMessageDTO(m))
	}
	return out
}

type systemStatusDTO struct {
	Mode      domain.Mode `json:"mode"`
	UpdatedAt *time.Time  `json:"updatedAt"`
	UpdatedBy string      `json:"updatedBy"`
}

// decodeJSON reads a bounded JSON body into v and validates it. The returned
// error is safe to show to the client.
func (a *api) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("request body is not valid JSON")
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}
