package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"NovaCS/entity"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepo serves one AI conversation. After statusAfterStream is set,
// every GetConversation past the first reports that status instead,
// which is how an agent claiming the thread mid-generation looks to
// the reply goroutine.
type stubRepo struct {
	mu                sync.Mutex
	calls             int
	statusAfterStream string
}

func (r *stubRepo) GetConversation(id string) (entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	status := entity.StatusAI
	if r.calls > 1 && r.statusAfterStream != "" {
		status = r.statusAfterStream
	}
	return entity.Conversation{ID: id, Status: status}, nil
}

func (r *stubRepo) GetRecentMessages(string, int) ([]entity.Message, error) {
	return nil, nil
}

func (r *stubRepo) EscalateConversation(id string) (entity.Conversation, error) {
	return entity.Conversation{ID: id, Status: entity.StatusPendingAgent}, nil
}

func (r *stubRepo) SaveMessage(m entity.Message) (entity.Message, error) {
	return m, nil
}

func (r *stubRepo) UpdateTranscript(string, string) (entity.Message, error) {
	return entity.Message{}, nil
}

// newStreamingService backs the OpenAI client with a stub that streams
// one delta and finishes.
func newStreamingService(t *testing.T, repo Repository) *Service {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"您好\"}}]}\n\n")
		f.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
		f.Flush()
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"

	return &Service{
		client:     openai.NewClientWithConfig(cfg),
		model:      "gpt-4o-mini",
		devPrefix:  "assistant",
		repository: repo,
		locker:     &LockConversations{conversations: make(map[string]*sync.Mutex)},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestReply_StreamsThenDone(t *testing.T) {
	s := newStreamingService(t, &stubRepo{})

	chunks, err := s.Reply(context.Background(), "conv-1", "你们的产品怎么样")
	require.NoError(t, err)

	var got []Chunk
	for c := range chunks {
		got = append(got, c)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "您好", got[0].Content)
	assert.True(t, got[1].Done)
}

func TestReply_TakeoverDuringStreamSkips(t *testing.T) {
	s := newStreamingService(t, &stubRepo{statusAfterStream: entity.StatusAgent})

	chunks, err := s.Reply(context.Background(), "conv-1", "你们的产品怎么样")
	require.NoError(t, err)

	var got []Chunk
	for c := range chunks {
		got = append(got, c)
	}
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.True(t, last.Skip)
	assert.Equal(t, ReasonHumanTakeover, last.Reason)
}

func TestReply_AbandonedConsumerReleasesLock(t *testing.T) {
	s := newStreamingService(t, &stubRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, err := s.Reply(ctx, "conv-1", "你们的产品怎么样")
	require.NoError(t, err)

	first := <-chunks
	assert.Equal(t, "您好", first.Content)

	// The consumer disconnects after the last delta and never reads
	// the terminal chunk. The reply goroutine must still exit and
	// release the conversation lock; a held lock here would freeze
	// automated replies for the thread for the life of the process.
	cancel()

	acquired := make(chan struct{})
	go func() {
		s.locker.Lock("conv-1")
		s.locker.Unlock("conv-1")
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("conversation lock still held after the consumer went away")
	}
}

func TestWantsHuman(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"转人工", true},
		{"请帮我转人工，谢谢", true},
		{"我要找客服", true},
		{"I want to speak to a HUMAN", true},
		{"can I talk to a real person?", true},
		{"我要退货", false},
		{"where is my order", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, wantsHuman(tc.text), "text: %q", tc.text)
	}
}

func TestChatContext(t *testing.T) {
	s := &Service{devPrefix: "You are a support assistant.", log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	history := []entity.Message{
		{Role: entity.RoleCustomer, Content: "我的订单什么时候到？"},
		{Role: entity.RoleAssistant, Content: "预计明天送达。"},
		{Role: entity.RoleCustomer, Attachment: &entity.Attachment{
			AudioURL:   "https://cdn.example.com/v.ogg",
			Transcript: "我想查一下物流",
		}},
		{Role: entity.RoleCustomer, Attachment: &entity.Attachment{
			AudioURL: "https://cdn.example.com/pending.ogg",
		}},
	}

	msgs := s.chatContext(history, "好的，谢谢")

	require.Len(t, msgs, 5)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, "You are a support assistant.", msgs[0].Content)

	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)

	// Voice message with a transcript joins the context as user text.
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[3].Role)
	assert.Equal(t, "我想查一下物流", msgs[3].Content)

	// The one without a transcript was skipped entirely.
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[4].Role)
	assert.Equal(t, "好的，谢谢", msgs[4].Content)
}

func TestChatContext_AgentSpeaksAsAssistant(t *testing.T) {
	s := &Service{devPrefix: "prefix"}

	msgs := s.chatContext([]entity.Message{
		{Role: entity.RoleAgent, Content: "已为您加急处理。"},
	}, "thanks")

	require.Len(t, msgs, 3)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[1].Role)
}

func TestTerminalChunk(t *testing.T) {
	ch := terminal(Chunk{Skip: true, Reason: ReasonHumanTakeover})

	c, ok := <-ch
	require.True(t, ok)
	assert.True(t, c.Skip)
	assert.Equal(t, ReasonHumanTakeover, c.Reason)

	_, ok = <-ch
	assert.False(t, ok, "channel closes after the terminal chunk")
}
