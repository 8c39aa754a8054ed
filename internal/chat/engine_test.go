package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NovaCS/entity"
	"NovaCS/internal/cache"
	"NovaCS/internal/gateway"
)

const testConv = "conv-1"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGateway struct {
	mu     sync.Mutex
	server []entity.Message

	serverNow time.Time
	failSend  bool

	streamEvents []gateway.StreamEvent
	streamCalls  int
	postCalls    int

	// observe, when set, runs inside PostMessage before the backend
	// "persists" anything.
	observe func()
}

func (g *fakeGateway) ListMessages(_ context.Context, _ string) ([]entity.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]entity.Message, len(g.server))
	copy(out, g.server)
	return out, nil
}

func (g *fakeGateway) PostMessage(_ context.Context, req gateway.SendRequest) (entity.Message, error) {
	if g.observe != nil {
		g.observe()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.postCalls++

	if g.failSend {
		return entity.Message{}, errors.New("gateway unreachable")
	}

	msg := entity.Message{
		ID:              req.ID,
		ClientMessageID: req.ClientMessageID,
		ConversationID:  req.ConversationID,
		Role:            req.Role,
		Content:         req.Content,
		Attachment:      req.Attachment,
		CreatedAt:       g.serverNow,
		UpdatedAt:       g.serverNow,
	}
	g.server = append(g.server, msg)
	g.serverNow = g.serverNow.Add(time.Second)
	return msg, nil
}

func (g *fakeGateway) StreamReply(_ context.Context, _, _ string) (<-chan gateway.StreamEvent, error) {
	g.mu.Lock()
	g.streamCalls++
	events := g.streamEvents
	g.mu.Unlock()

	ch := make(chan gateway.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range events {
			ch <- ev
		}
	}()
	return ch, nil
}

type fakeHandoff struct {
	mu       sync.Mutex
	allow    bool
	observed []string
}

func (h *fakeHandoff) AllowAutoReply() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allow
}

func (h *fakeHandoff) Observe(status, assignedAgentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observed = append(h.observed, status+"/"+assignedAgentID)
}

func newTestEngine(t *testing.T, gw *fakeGateway, hs *fakeHandoff) (*Engine, *cache.MemoryStore) {
	t.Helper()
	if gw.serverNow.IsZero() {
		gw.serverNow = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	}

	store := cache.NewMemoryStore()
	e := NewEngine(testConv, gw, store, hs, testLogger())
	e.SetPollInterval(time.Hour)
	t.Cleanup(e.Close)

	require.NoError(t, e.Start(context.Background()))
	return e, store
}

func TestEngine_SendText_PlaceholderBeforeNetwork(t *testing.T) {
	gw := &fakeGateway{}
	hs := &fakeHandoff{}
	e, store := newTestEngine(t, gw, hs)

	var seenDuringPost []entity.Message
	gw.observe = func() { seenDuringPost = e.Messages() }

	require.NoError(t, e.SendText(context.Background(), "hello"))

	// The placeholder was already visible while the request was on the
	// wire.
	require.Len(t, seenDuringPost, 1)
	assert.Equal(t, "hello", seenDuringPost[0].Content)
	assert.Equal(t, entity.RoleCustomer, seenDuringPost[0].Role)

	msgs := e.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, seenDuringPost[0].ID, msgs[0].ID, "confirmation keeps the minted id")
	assert.Equal(t, gw.server[0].CreatedAt, msgs[0].CreatedAt, "server timestamps win")

	cached, ok := store.Get(testConv)
	require.True(t, ok)
	assert.Equal(t, msgs, cached)
}

func TestEngine_SendText_RollbackOnFailure(t *testing.T) {
	gw := &fakeGateway{failSend: true}
	e, store := newTestEngine(t, gw, &fakeHandoff{})

	err := e.SendText(context.Background(), "hello")
	require.Error(t, err)

	assert.Empty(t, e.Messages(), "failed send leaves no placeholder")
	cached, _ := store.Get(testConv)
	assert.Empty(t, cached)
}

func TestEngine_AutoReply_ReturnRequest(t *testing.T) {
	gw := &fakeGateway{
		streamEvents: []gateway.StreamEvent{
			{Delta: "您好，"},
			{Delta: "已收到您的退货申请。"},
			{Done: true},
		},
	}
	hs := &fakeHandoff{allow: true}
	e, _ := newTestEngine(t, gw, hs)

	require.NoError(t, e.SendText(context.Background(), "我要退货"))

	msgs := e.Messages()
	require.Len(t, msgs, 2, "exactly the customer message and the finished reply")
	assert.Equal(t, entity.RoleCustomer, msgs[0].Role)
	assert.Equal(t, "我要退货", msgs[0].Content)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "您好，已收到您的退货申请。", msgs[1].Content)
	assert.Equal(t, 2, gw.postCalls, "customer message and reply both persisted")
}

func TestEngine_AutoReply_SkipLeavesNoTrace(t *testing.T) {
	gw := &fakeGateway{
		streamEvents: []gateway.StreamEvent{
			{Delta: "partial answer"},
			{Skip: true},
		},
	}
	hs := &fakeHandoff{allow: true}
	e, store := newTestEngine(t, gw, hs)

	require.NoError(t, e.SendText(context.Background(), "hello"))

	msgs := e.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.RoleCustomer, msgs[0].Role)
	assert.Equal(t, 1, gw.postCalls, "the preempted reply is never persisted")

	cached, ok := store.Get(testConv)
	require.True(t, ok)
	require.Len(t, cached, 1, "no trace of the placeholder in the cache either")
}

func TestEngine_AutoReply_StreamErrorDiscardsPartial(t *testing.T) {
	gw := &fakeGateway{
		streamEvents: []gateway.StreamEvent{
			{Delta: "half an"},
			{Err: errors.New("connection reset")},
		},
	}
	hs := &fakeHandoff{allow: true}
	e, _ := newTestEngine(t, gw, hs)

	// The customer send itself still succeeds.
	require.NoError(t, e.SendText(context.Background(), "hello"))

	msgs := e.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.RoleCustomer, msgs[0].Role)
}

// streamCtxGateway records the context handed to StreamReply.
type streamCtxGateway struct {
	*fakeGateway
	streamCtx context.Context
}

func (g *streamCtxGateway) StreamReply(ctx context.Context, conversationID, content string) (<-chan gateway.StreamEvent, error) {
	g.streamCtx = ctx
	return g.fakeGateway.StreamReply(ctx, conversationID, content)
}

func TestEngine_StreamContextEndsWithReply(t *testing.T) {
	gw := &streamCtxGateway{fakeGateway: &fakeGateway{
		streamEvents: []gateway.StreamEvent{
			{Delta: "half an"},
			{Err: errors.New("connection reset")},
		},
	}}
	gw.serverNow = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	hs := &fakeHandoff{allow: true}

	store := cache.NewMemoryStore()
	e := NewEngine(testConv, gw, store, hs, testLogger())
	e.SetPollInterval(time.Hour)
	t.Cleanup(e.Close)
	require.NoError(t, e.Start(context.Background()))

	require.NoError(t, e.SendText(context.Background(), "hello"))

	// Once the reply handling returns, the context given to the
	// stream must be dead so an unread gateway reader can never stay
	// parked on a send.
	require.NotNil(t, gw.streamCtx)
	select {
	case <-gw.streamCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("stream context still live after the reply ended")
	}
}

func TestEngine_NoAutoReplyUnderHumanHandling(t *testing.T) {
	gw := &fakeGateway{}
	hs := &fakeHandoff{allow: false}
	e, _ := newTestEngine(t, gw, hs)

	require.NoError(t, e.SendText(context.Background(), "hello"))

	assert.Equal(t, 0, gw.streamCalls)
	assert.Len(t, e.Messages(), 1)
}

func TestEngine_PollReconciles(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(t, gw, &fakeHandoff{})

	// A message appeared server-side without any push event.
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	gw.mu.Lock()
	gw.server = append(gw.server, entity.Message{
		ID: "srv-1", ConversationID: testConv,
		Role: entity.RoleAgent, Content: "how can I help?",
		CreatedAt: base, UpdatedAt: base,
	})
	gw.mu.Unlock()

	e.pollOnce(context.Background())

	msgs := e.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)

	// Polling again is a no-op.
	e.pollOnce(context.Background())
	assert.Len(t, e.Messages(), 1)
}

func TestEngine_DuplicateIngestionPaths(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(t, gw, &fakeHandoff{})

	require.NoError(t, e.SendText(context.Background(), "hello"))
	require.Len(t, e.Messages(), 1)

	// The same record then arrives through polling, as the realtime
	// channel would also deliver it. Still one message.
	e.pollOnce(context.Background())
	e.pollOnce(context.Background())
	assert.Len(t, e.Messages(), 1)
}

func TestEngine_CloseDiscardsLateResults(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(t, gw, &fakeHandoff{})

	require.NoError(t, e.SendText(context.Background(), "hello"))
	before := e.Messages()

	e.Close()

	gw.mu.Lock()
	gw.server = append(gw.server, entity.Message{
		ID: "late", ConversationID: testConv, Role: entity.RoleAgent,
		Content: "too late", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	gw.mu.Unlock()

	// A fetch that resolves after Close must not mutate the list.
	e.pollOnce(context.Background())
	assert.Equal(t, before, e.Messages())

	assert.ErrorIs(t, e.SendText(context.Background(), "again"), ErrClosed)
}

func TestEngine_SeedsFromCache(t *testing.T) {
	gw := &fakeGateway{serverNow: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	store := cache.NewMemoryStore()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cached := []entity.Message{{
		ID: "c1", ConversationID: testConv, Role: entity.RoleCustomer,
		Content: "earlier today", CreatedAt: base, UpdatedAt: base,
	}}
	require.NoError(t, store.Put(testConv, cached))

	e := NewEngine(testConv, gw, store, &fakeHandoff{}, testLogger())
	e.SetPollInterval(time.Hour)
	t.Cleanup(e.Close)

	var firstNotify []entity.Message
	var once sync.Once
	notified := make(chan struct{})
	e.SetOnChange(func(msgs []entity.Message) {
		once.Do(func() {
			firstNotify = msgs
			close(notified)
		})
	})

	require.NoError(t, e.Start(context.Background()))

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("no change notification after start")
	}
	assert.Equal(t, cached, firstNotify, "cached history shows before any network call")
}

func TestEngine_ActorRoleCarriesThrough(t *testing.T) {
	gw := &fakeGateway{}
	e, _ := newTestEngine(t, gw, &fakeHandoff{allow: true})
	e.SetActor("agent-7", entity.RoleAgent)

	require.NoError(t, e.SendText(context.Background(), "picking this up"))

	msgs := e.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.RoleAgent, msgs[0].Role)
	assert.Equal(t, 0, gw.streamCalls, "agent messages never trigger the assistant")
}
