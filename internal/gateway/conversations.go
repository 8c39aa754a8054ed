package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"NovaCS/entity"
)

// AssignResult is the backend's confirmed view after an assign call.
// On a lost race OK is false and AssignedAgentID names the winner.
type AssignResult struct {
	OK              bool   `json:"ok"`
	ConversationID  string `json:"conversation_id"`
	AssignedAgentID string `json:"assigned_agent_id"`
	AgentName       string `json:"agent_name"`
	Status          string `json:"status"`
}

// ListConversations fetches the inbox summaries visible to the caller.
func (c *Client) ListConversations(ctx context.Context) ([]entity.Conversation, error) {
	var convs []entity.Conversation
	if err := c.doJSON(ctx, "GET", "/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Assign claims the conversation for the acting agent. The backend is
// the sole arbiter of exclusivity: a lost race returns
// ErrAlreadyAssigned together with the winner's identity.
func (c *Client) Assign(ctx context.Context, conversationID string) (AssignResult, error) {
	path := fmt.Sprintf("%s/conversations/%s/assign", c.baseURL, conversationID)

	req, err := http.NewRequestWithContext(ctx, "POST", path, nil)
	if err != nil {
		return AssignResult{}, fmt.Errorf("create assign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return AssignResult{}, fmt.Errorf("gateway assign: %w", err)
	}
	defer resp.Body.Close()

	var result AssignResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return AssignResult{}, fmt.Errorf("decode assign response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return result, nil
	case http.StatusConflict:
		// Result still carries the current owner so the caller can
		// reflect the winner instead of retrying.
		return result, ErrAlreadyAssigned
	case http.StatusNotFound:
		return AssignResult{}, ErrNotFound
	default:
		return AssignResult{}, fmt.Errorf("gateway assign: status %d", resp.StatusCode)
	}
}

// Release hands the conversation back to automated handling. Only the
// current assignee may release; anyone else gets ErrNotAssignee.
func (c *Client) Release(ctx context.Context, conversationID string) error {
	path := fmt.Sprintf("%s/conversations/%s/release", c.baseURL, conversationID)

	req, err := http.NewRequestWithContext(ctx, "POST", path, nil)
	if err != nil {
		return fmt.Errorf("create release request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway release: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusForbidden:
		return ErrNotAssignee
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("gateway release: status %d", resp.StatusCode)
	}
}
