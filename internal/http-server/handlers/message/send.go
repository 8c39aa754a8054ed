package message

import (
	"NovaCS/entity"
	"NovaCS/internal/lib/api/response"
	"NovaCS/internal/lib/sl"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// SendRequest mirrors the client gateway payload. The id comes minted
// from the client and becomes the permanent record id; a retried send
// carries the same id and overwrites instead of duplicating.
type SendRequest struct {
	ConversationID  string             `json:"conversation_id" validate:"required"`
	ID              string             `json:"id" validate:"required,uuid4"`
	ClientMessageID string             `json:"client_message_id" validate:"required,uuid4"`
	Role            string             `json:"role" validate:"required,oneof=customer assistant agent system"`
	Content         string             `json:"content" validate:"required_without=Attachment"`
	Attachment      *entity.Attachment `json:"attachment,omitempty"`
}

func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.message")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("message service not available")
			render.JSON(w, r, response.Error("message service not available"))
			return
		}

		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid send request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid send request"))
			return
		}

		saved, err := handler.SaveMessage(entity.Message{
			ID:              req.ID,
			ClientMessageID: req.ClientMessageID,
			ConversationID:  req.ConversationID,
			Role:            req.Role,
			Content:         req.Content,
			Attachment:      req.Attachment,
		})
		if err != nil {
			logger.Error("failed to save message",
				slog.String("message_id", req.ID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to save message"))
			return
		}

		logger.Debug("message saved",
			slog.String("message_id", saved.ID),
			slog.String("conversation_id", saved.ConversationID),
			slog.String("role", saved.Role),
		)
		render.JSON(w, r, response.Ok(saved))
	}
}
