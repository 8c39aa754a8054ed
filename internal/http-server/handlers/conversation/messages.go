package conversation

import (
	"NovaCS/internal/lib/api/response"
	"NovaCS/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Messages returns the full ordered timeline of one conversation. This
// is what the client poller hits every few seconds, so it stays a
// plain indexed read.
func Messages(log *slog.Logger, handler Core) http.HandlerFunc {
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
		if conversationID == "" {
			render.JSON(w, r, response.Error("conversation id is required"))
			return
		}

		messages, err := handler.GetMessages(conversationID)
		if err != nil {
			logger.Error("failed to list messages",
				slog.String("conversation_id", conversationID), sl.Err(err))
			render.JSON(w, r, response.Error("Failed to list messages"))
			return
		}

		render.JSON(w, r, response.Ok(messages))
	}
}
