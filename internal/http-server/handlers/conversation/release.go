package conversation

import (
	"NovaCS/internal/lib/api/cont"
	"NovaCS/internal/lib/api/response"
	"NovaCS/internal/lib/sl"
	"errors"
	"log/slog"
	"net/http"

	repository "NovaCS/internal/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Release(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.conversation")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("conversation service not available")
			render.JSON(w, r, response.Error("conversation service not available"))
			return
		}

		conversationID := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())
		if conversationID == "" || user == nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Bad request"))
			return
		}

		conv, err := handler.ReleaseConversation(conversationID, user.Username)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotAssignee):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("Only the assigned agent may release"))
			case errors.Is(err, repository.ErrNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Conversation not found"))
			default:
				logger.Error("failed to release conversation",
					slog.String("conversation_id", conversationID), sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("Failed to release conversation"))
			}
			return
		}

		render.JSON(w, r, response.Ok(conv))
	}
}
