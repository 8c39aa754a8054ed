package returns

import (
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

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
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

		id := chi.URLParam(r, "id")
		if id == "" {
			render.JSON(w, r, response.Error("return id is required"))
			return
		}

		if err := handler.DeleteReturn(id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Return not found"))
				return
			}
			logger.Error("failed to delete return",
				slog.String("return_id", id), sl.Err(err))
			render.JSON(w, r, response.Error("Failed to delete return"))
			return
		}

		logger.Debug("return deleted", slog.String("return_id", id))
		render.JSON(w, r, response.Ok(nil))
	}
}
