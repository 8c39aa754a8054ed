package order

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

// Get returns one order with its active return and the eligibility
// verdict. Every surface that renders refund state reads this one
// endpoint, so they cannot disagree.
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.order")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("order service not available")
			render.JSON(w, r, response.Error("order service not available"))
			return
		}

		orderID := chi.URLParam(r, "id")
		if orderID == "" {
			render.JSON(w, r, response.Error("order id is required"))
			return
		}

		detail, err := handler.GetOrderDetail(orderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Order not found"))
				return
			}
			logger.Error("failed to get order",
				slog.String("order_id", orderID), sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to get order"))
			return
		}

		render.JSON(w, r, response.Ok(detail))
	}
}
