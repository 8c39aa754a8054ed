package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"NovaCS/internal/config"
	"NovaCS/internal/lib/sl"

	"github.com/go-playground/validator/v10"
)

// Sentinel failures the engine reacts to specifically. Everything else
// is a transient network failure and recoverable at the call site.
var (
	ErrAlreadyAssigned = errors.New("conversation already assigned to another agent")
	ErrNotAssignee     = errors.New("conversation is not assigned to this agent")
	ErrNotFound        = errors.New("record not found")
)

// Client speaks the backend REST contract. It holds no conversation
// state; the sync engine owns that.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	validate *validator.Validate
	log      *slog.Logger
}

func NewClient(conf *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  conf.Gateway.BaseURL,
		apiKey:   conf.Gateway.ApiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
		validate: validator.New(),
		log:      logger.With(sl.Module("gateway")),
	}
}

// envelope is the JSON wrapper list/detail endpoints respond with.
type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "ok" {
		return fmt.Errorf("gateway %s %s: %s", method, path, env.Error)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
