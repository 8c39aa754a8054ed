package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"NovaCS/entity"
	"NovaCS/internal/config"
	"NovaCS/internal/ident"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	conf := &config.Config{}
	conf.Gateway.BaseURL = baseURL
	conf.Gateway.ApiKey = "test-key"
	return NewClient(conf, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListMessages_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/conversations/conv-1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"data": []entity.Message{
				{ID: "m1", ConversationID: "conv-1", Role: entity.RoleCustomer, Content: "你好"},
				{ID: "m2", ConversationID: "conv-1", Role: entity.RoleAssistant, Content: "您好，请问有什么可以帮您？"},
			},
		})
	}))
	defer srv.Close()

	msgs, err := newTestClient(srv.URL).ListMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "你好", msgs[0].Content)
}

func TestListMessages_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": "boom"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListMessages(context.Background(), "conv-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPostMessage_RejectsInvalidPayloadLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()
	c := newTestClient(srv.URL)

	// Not a uuid4 id: never reaches the wire.
	_, err := c.PostMessage(context.Background(), SendRequest{
		ConversationID:  "conv-1",
		ID:              "not-a-uuid",
		ClientMessageID: "not-a-uuid",
		Role:            entity.RoleCustomer,
		Content:         "hi",
	})
	require.Error(t, err)
	var verr validator.ValidationErrors
	assert.ErrorAs(t, err, &verr)
	assert.False(t, called)

	// Voice message with no content is valid as long as an attachment rides along.
	id := ident.NewMessageID()
	_, err = c.PostMessage(context.Background(), SendRequest{
		ConversationID:  "conv-1",
		ID:              id,
		ClientMessageID: id,
		Role:            entity.RoleCustomer,
		Attachment:      &entity.Attachment{AudioURL: "https://cdn.example.com/v.ogg"},
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestPostMessage_EchoesServerRecord(t *testing.T) {
	id := ident.NewMessageID()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, id, req.ID)

		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"data": entity.Message{
				ID:              req.ID,
				ClientMessageID: req.ClientMessageID,
				ConversationID:  req.ConversationID,
				Role:            req.Role,
				Content:         req.Content,
				CreatedAt:       now,
				UpdatedAt:       now,
			},
		})
	}))
	defer srv.Close()

	msg, err := newTestClient(srv.URL).PostMessage(context.Background(), SendRequest{
		ConversationID:  "conv-1",
		ID:              id,
		ClientMessageID: id,
		Role:            entity.RoleCustomer,
		Content:         "我要退货",
	})
	require.NoError(t, err)
	assert.Equal(t, id, msg.ID, "backend keeps the client-minted id")
	assert.Equal(t, now, msg.CreatedAt)
}

func TestAssign_LostRaceCarriesWinner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations/conv-1/assign", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(AssignResult{
			OK:              false,
			ConversationID:  "conv-1",
			AssignedAgentID: "agent-wei",
			AgentName:       "agent-wei",
			Status:          entity.StatusAgent,
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Assign(context.Background(), "conv-1")
	require.ErrorIs(t, err, ErrAlreadyAssigned)
	assert.False(t, result.OK)
	assert.Equal(t, "agent-wei", result.AssignedAgentID)
	assert.Equal(t, entity.StatusAgent, result.Status)
}

func TestAssign_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(AssignResult{
			OK:              true,
			ConversationID:  "conv-1",
			AssignedAgentID: "agent-li",
			Status:          entity.StatusAgent,
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Assign(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "agent-li", result.AssignedAgentID)
}

func TestRelease_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Release(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrNotAssignee)
}

func TestStreamReply_AbandonedConsumerUnblocksReader(t *testing.T) {
	baseline := runtime.NumGoroutine()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		io.WriteString(w, "data: {\"content\":\"您\"}\n\n")
		f.Flush()
		// Keep the stream open until the client hangs up, like a slow
		// model would.
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	events, err := newTestClient(srv.URL).StreamReply(ctx, "conv-1", "hi")
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "您", ev.Delta)

	// The consumer walks away without draining. The reader goroutine
	// must exit on ctx instead of parking forever on its next send
	// with the response body held open.
	cancel()
	srv.Close()

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 10*time.Millisecond, "stream reader goroutine leaked")
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListMessages(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}
