package returns

import (
	"NovaCS/internal/lib/api/response"
	"NovaCS/internal/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.returns")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("returns service not available")
			render.JSON(w, r, response.Error("returns service not available"))
			return
		}

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			render.JSON(w, r, response.Error("user_id is required"))
			return
		}

		records, err := handler.GetUserReturns(userID)
		if err != nil {
			logger.Error("failed to list returns",
				slog.String("user_id", userID), sl.Err(err))
			render.JSON(w, r, response.Error("Failed to list returns"))
			return
		}

		render.JSON(w, r, response.Ok(records))
	}
}
