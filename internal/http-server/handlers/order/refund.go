package order

import (
	"NovaCS/internal/lib/api/cont"
	"NovaCS/internal/lib/api/response"
	"NovaCS/internal/lib/sl"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	repository "NovaCS/internal/database"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

func Refund(log *slog.Logger, handler Core) http.HandlerFunc {
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

		// Agent consoles authenticate as named agents; the customer
		// widget uses the shared widget key.
		byAgent := false
		if user := cont.GetUser(r.Context()); user != nil && user.Username != "widget" {
			byAgent = true
		}

		record, err := handler.RefundOrder(orderID, byAgent)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Order not found"))
				return
			}
			logger.Error("failed to refund order",
				slog.String("order_id", orderID), sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Failed to refund order: %v", err)))
			return
		}

		logger.Info("order refunded",
			slog.String("order_id", orderID),
			slog.String("return_id", record.ID),
		)
		render.JSON(w, r, response.Ok(record))
	}
}
