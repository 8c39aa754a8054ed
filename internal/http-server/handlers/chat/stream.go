package chat

import (
	"NovaCS/internal/lib/sl"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type streamRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Stream answers a customer message over server-sent events. Each
// chunk is one `data:` line; the stream ends after a done or skip
// chunk. Mounted outside the request timeout since a reply can take
// longer than any sane API deadline.
func Stream(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.chat")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("chat service not available")
			http.Error(w, "chat service not available", http.StatusServiceUnavailable)
			return
		}

		var req streamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ConversationID == "" || req.Message == "" {
			http.Error(w, "conversation_id and message are required", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			logger.Error("response writer does not support flushing")
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		chunks, err := handler.StreamReply(r.Context(), req.ConversationID, req.Message)
		if err != nil {
			logger.Error("failed to start reply stream",
				slog.String("conversation_id", req.ConversationID), sl.Err(err))
			http.Error(w, "Failed to start reply", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for chunk := range chunks {
			data, err := json.Marshal(chunk)
			if err != nil {
				logger.Error("failed to marshal chunk", sl.Err(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				logger.Debug("client dropped the stream", sl.Err(err))
				return
			}
			flusher.Flush()
		}
	}
}
