package conversation

import (
	"NovaCS/internal/lib/api/cont"
	"NovaCS/internal/lib/sl"
	"errors"
	"log/slog"
	"net/http"

	repository "NovaCS/internal/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// AssignResponse is the confirmed view after an assign attempt. It is
// returned on success and, with ok=false and the winner's identity, on
// a 409 so the loser can reflect reality instead of retrying.
// AgentName aliases AssignedAgentID: agents authenticate by username
// and there is no separate profile store to resolve a display name
// from.
type AssignResponse struct {
	OK              bool   `json:"ok"`
	ConversationID  string `json:"conversation_id"`
	AssignedAgentID string `json:"assigned_agent_id"`
	AgentName       string `json:"agent_name"`
	Status          string `json:"status"`
}

func Assign(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("conversation service not available")
			http.Error(w, "conversation service not available", http.StatusServiceUnavailable)
			return
		}

		conversationID := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())
		if conversationID == "" || user == nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		conv, err := handler.AssignConversation(conversationID, user.Username)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrConversationAssigned):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, AssignResponse{
					OK:              false,
					ConversationID:  conv.ID,
					AssignedAgentID: conv.AssignedAgentID,
					AgentName:       conv.AssignedAgentID,
					Status:          conv.Status,
				})
			case errors.Is(err, repository.ErrNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, AssignResponse{OK: false, ConversationID: conversationID})
			default:
				logger.Error("failed to assign conversation",
					slog.String("conversation_id", conversationID), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, AssignResponse{OK: false, ConversationID: conversationID})
			}
			return
		}

		render.JSON(w, r, AssignResponse{
			OK:              true,
			ConversationID:  conv.ID,
			AssignedAgentID: conv.AssignedAgentID,
			AgentName:       conv.AssignedAgentID,
			Status:          conv.Status,
		})
	}
}
