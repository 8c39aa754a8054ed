package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NovaCS/entity"
)

func msgAt(id string, role, content string, at time.Time) entity.Message {
	return entity.Message{
		ID:             id,
		ConversationID: "conv-1",
		Role:           role,
		Content:        content,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

func TestMerge_Idempotent(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	list := []entity.Message{
		msgAt("a", entity.RoleCustomer, "hello", base),
		msgAt("b", entity.RoleAssistant, "hi there", base.Add(time.Second)),
	}

	merged := Merge(list, list)
	assert.Equal(t, list, merged)

	// Sublists are already contained and change nothing.
	again := Merge(merged, list[:1])
	assert.Equal(t, merged, again)
}

func TestMerge_NeverDuplicatesIDs(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	current := []entity.Message{
		msgAt("a", entity.RoleCustomer, "hello", base),
	}
	incoming := []entity.Message{
		msgAt("a", entity.RoleCustomer, "hello", base),
		msgAt("b", entity.RoleAssistant, "hi", base.Add(time.Second)),
		msgAt("b", entity.RoleAssistant, "hi", base.Add(time.Second)),
	}

	merged := Merge(current, incoming)
	require.Len(t, merged, 2)

	seen := map[string]bool{}
	for _, m := range merged {
		assert.False(t, seen[m.ID], "id %s appears twice", m.ID)
		seen[m.ID] = true
	}
}

func TestMerge_SortsByCreatedAt(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	current := []entity.Message{
		msgAt("c", entity.RoleCustomer, "third", base.Add(2*time.Second)),
	}
	incoming := []entity.Message{
		msgAt("b", entity.RoleAssistant, "second", base.Add(time.Second)),
		msgAt("a", entity.RoleCustomer, "first", base),
	}

	merged := Merge(current, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, []string{"a", "b", "c"},
		[]string{merged[0].ID, merged[1].ID, merged[2].ID})
}

func TestMerge_LaterUpdateWins(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	current := []entity.Message{msgAt("a", entity.RoleCustomer, "draft", base)}

	server := msgAt("a", entity.RoleCustomer, "final", base)
	server.UpdatedAt = base.Add(time.Second)

	merged := Merge(current, []entity.Message{server})
	require.Len(t, merged, 1)
	assert.Equal(t, "final", merged[0].Content)

	// The stale copy arriving afterwards does not regress the record.
	stale := msgAt("a", entity.RoleCustomer, "draft", base)
	merged = Merge(merged, []entity.Message{stale})
	require.Len(t, merged, 1)
	assert.Equal(t, "final", merged[0].Content)
}

func TestMerge_KeepsTranscript(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	local := msgAt("a", entity.RoleCustomer, "", base)
	local.Attachment = &entity.Attachment{
		AudioURL:   "https://cdn.example.com/a.ogg",
		Transcript: "我要退货",
		Duration:   4,
	}

	// A later copy without the transcript must not erase it.
	bare := msgAt("a", entity.RoleCustomer, "", base)
	bare.UpdatedAt = base.Add(time.Second)
	bare.Attachment = &entity.Attachment{AudioURL: "https://cdn.example.com/a.ogg"}

	merged := Merge([]entity.Message{local}, []entity.Message{bare})
	require.Len(t, merged, 1)
	require.NotNil(t, merged[0].Attachment)
	assert.Equal(t, "我要退货", merged[0].Attachment.Transcript)
	assert.Equal(t, 4, merged[0].Attachment.Duration)

	// An explicit replacement does win.
	corrected := bare
	corrected.UpdatedAt = base.Add(2 * time.Second)
	corrected.Attachment = &entity.Attachment{
		AudioURL:   "https://cdn.example.com/a.ogg",
		Transcript: "我想退货",
	}
	merged = Merge(merged, []entity.Message{corrected})
	assert.Equal(t, "我想退货", merged[0].Attachment.Transcript)
}

func TestMerge_PlaceholderConfirmationReorders(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	existing := msgAt("old", entity.RoleAssistant, "anything else?", base.Add(5*time.Second))

	placeholder := msgAt("new", entity.RoleCustomer, "yes", base.Add(10*time.Second))
	list := Merge([]entity.Message{existing}, []entity.Message{placeholder})

	// The server stamps an earlier created_at than the local clock did;
	// confirmation must re-sort, not just overwrite in place.
	confirmed := placeholder
	confirmed.CreatedAt = base.Add(2 * time.Second)
	confirmed.UpdatedAt = base.Add(11 * time.Second)

	list = Merge(list, []entity.Message{confirmed})
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestMerge_PureInputsUntouched(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	current := []entity.Message{msgAt("a", entity.RoleCustomer, "hello", base)}
	incoming := []entity.Message{msgAt("b", entity.RoleAssistant, "hi", base.Add(time.Second))}

	_ = Merge(current, incoming)

	assert.Len(t, current, 1)
	assert.Equal(t, "a", current[0].ID)
	assert.Len(t, incoming, 1)
}
