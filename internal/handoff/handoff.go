package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"NovaCS/entity"
	"NovaCS/internal/gateway"
	"NovaCS/internal/lib/sl"
)

var (
	// ErrIllegalTransition means the requested transition is not in
	// the legality table, before any network call is made.
	ErrIllegalTransition = errors.New("illegal conversation transition")
)

// Backend is the slice of the gateway the state machine drives. The
// backend is the sole arbiter of exclusivity; the machine only applies
// confirmed outcomes.
type Backend interface {
	Assign(ctx context.Context, conversationID string) (gateway.AssignResult, error)
	Release(ctx context.Context, conversationID string) error
}

// Machine tracks one conversation's hand-off state for one actor. The
// local view is advisory between actions: every backend response and
// every pushed status update overwrites it. The UI queries the machine
// and never re-implements transition rules.
type Machine struct {
	mu sync.Mutex

	conversationID string
	actorID        string

	status          string
	assignedAgentID string

	backend Backend
	log     *slog.Logger
}

func NewMachine(backend Backend, conversationID, actorID, status, assignedAgentID string, logger *slog.Logger) *Machine {
	if status == "" {
		status = entity.StatusAI
	}
	return &Machine{
		conversationID:  conversationID,
		actorID:         actorID,
		status:          status,
		assignedAgentID: assignedAgentID,
		backend:         backend,
		log:             logger.With(sl.Module("handoff"), slog.String("conversation_id", conversationID)),
	}
}

// Status returns the advisory local status.
func (m *Machine) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// AssignedAgentID returns the advisory current assignee.
func (m *Machine) AssignedAgentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignedAgentID
}

// AllowAutoReply reports whether a customer message should trigger an
// automated reply. Only the ai state does; a pending escalation or an
// active human both suppress it.
func (m *Machine) AllowAutoReply() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == entity.StatusAI
}

// CanAssign reports whether assign is a legal action from the current
// local state. Legal from ai (direct pickup) and pending_agent.
func (m *Machine) CanAssign() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == entity.StatusAI || m.status == entity.StatusPendingAgent
}

// CanRelease reports whether release is legal: only the current
// assignee of an agent-handled conversation may release.
func (m *Machine) CanRelease() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == entity.StatusAgent && m.assignedAgentID == m.actorID
}

// Assign claims the conversation for the acting agent. Success is never
// assumed before the backend confirms it: the local state changes only
// on a confirmed response. A lost race returns
// gateway.ErrAlreadyAssigned and the machine reflects the winner.
func (m *Machine) Assign(ctx context.Context) (gateway.AssignResult, error) {
	if !m.CanAssign() {
		return gateway.AssignResult{}, fmt.Errorf("%w: assign from %q", ErrIllegalTransition, m.Status())
	}

	result, err := m.backend.Assign(ctx, m.conversationID)
	if err != nil {
		if errors.Is(err, gateway.ErrAlreadyAssigned) && result.AssignedAgentID != "" {
			// Reflect the winner; this actor must not treat itself
			// as owner.
			m.Observe(entity.StatusAgent, result.AssignedAgentID)
		}
		return result, err
	}

	m.Observe(entity.StatusAgent, result.AssignedAgentID)
	m.log.Info("conversation assigned", slog.String("agent_id", result.AssignedAgentID))
	return result, nil
}

// Release hands the conversation back to automated handling. Only the
// current assignee may do this.
func (m *Machine) Release(ctx context.Context) error {
	if !m.CanRelease() {
		return fmt.Errorf("%w: release by non-assignee", ErrIllegalTransition)
	}

	if err := m.backend.Release(ctx, m.conversationID); err != nil {
		return err
	}

	m.Observe(entity.StatusAI, "")
	m.log.Info("conversation released")
	return nil
}

// Observe applies a backend-confirmed status. Pushed conversation
// updates and action responses both land here; the backend's view
// always wins over the advisory local one.
func (m *Machine) Observe(status, assignedAgentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status != m.status {
		m.log.Debug("conversation status changed",
			slog.String("from", m.status), slog.String("to", status))
	}
	m.status = status
	if status == entity.StatusAgent {
		m.assignedAgentID = assignedAgentID
	} else {
		m.assignedAgentID = ""
	}
}
