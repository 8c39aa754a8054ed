package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"NovaCS/internal/lib/sl"
)

// StreamEvent is one server-sent chunk of an automated reply. Exactly
// one of Delta, Done, Skip or Err is meaningful per event; a Skip means
// a human took the conversation over mid-stream and the reply must be
// discarded.
type StreamEvent struct {
	Delta string
	Done  bool
	Skip  bool
	Err   error
}

type streamChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Skip    bool   `json:"skip"`
	Reason  string `json:"reason"`
}

// StreamReply opens the automated-reply stream for a just-sent customer
// message. Events arrive on the returned channel, which is closed after
// a Done, Skip or Err event, or when ctx ends.
func (c *Client) StreamReply(ctx context.Context, conversationID, content string) (<-chan StreamEvent, error) {
	body := strings.NewReader(fmt.Sprintf(
		`{"conversation_id":%q,"message":%q}`, conversationID, content,
	))

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", body)
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// No client timeout here: the stream lives until done or skip, and
	// is bounded by ctx.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway chat stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("gateway chat stream: status %d", resp.StatusCode)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
				c.log.Warn("skipping malformed stream chunk", sl.Err(err))
				continue
			}

			// Every send selects on ctx: a consumer that stopped
			// reading must not park this goroutine and the open
			// response body.
			switch {
			case chunk.Skip:
				c.log.Debug("automated reply skipped", slog.String("reason", chunk.Reason))
				select {
				case events <- StreamEvent{Skip: true}:
				case <-ctx.Done():
				}
				return
			case chunk.Done:
				select {
				case events <- StreamEvent{Done: true}:
				case <-ctx.Done():
				}
				return
			case chunk.Content != "":
				select {
				case events <- StreamEvent{Delta: chunk.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case events <- StreamEvent{Err: fmt.Errorf("chat stream interrupted: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}
