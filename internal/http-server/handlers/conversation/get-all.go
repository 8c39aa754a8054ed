package conversation

import (
	"NovaCS/internal/lib/api/response"
	"NovaCS/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func GetAll(log *slog.Logger, handler Core) http.HandlerFunc {
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

		conversations, err := handler.GetConversations()
		if err != nil {
			logger.Error("failed to list conversations", sl.Err(err))
			render.JSON(w, r, response.Error("Failed to list conversations"))
			return
		}

		logger.Debug("conversations listed", slog.Int("count", len(conversations)))
		render.JSON(w, r, response.Ok(conversations))
	}
}
