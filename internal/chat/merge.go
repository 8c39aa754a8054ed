package chat

import (
	"sort"

	"NovaCS/entity"
)

// Merge combines an incoming batch of messages with the current list.
// It is the single choke point for all three ingestion paths: realtime
// events, poll results and optimistic confirmations all land here, so
// de-duplication lives in exactly one place.
//
// The list is a set keyed by id. An unknown id is inserted; a known id
// is combined, preferring the copy with the later updated_at but never
// dropping fields the older copy had and the newer one lacks — in
// particular an attachment transcript survives until a record
// explicitly replaces it. The result is re-sorted by created_at with a
// stable sort, so ties keep their relative order.
//
// Merge is pure and idempotent: Merge(l, l) == l.
func Merge(current, incoming []entity.Message) []entity.Message {
	if len(incoming) == 0 {
		return current
	}

	out := make([]entity.Message, len(current))
	copy(out, current)

	index := make(map[string]int, len(out))
	for i, m := range out {
		index[m.ID] = i
	}

	for _, in := range incoming {
		if i, ok := index[in.ID]; ok {
			out[i] = combine(out[i], in)
			continue
		}
		index[in.ID] = len(out)
		out = append(out, in)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// combine resolves two records sharing an id. The later updated_at
// wins field-by-field; missing fields fall back to the other copy.
func combine(existing, incoming entity.Message) entity.Message {
	newer, older := incoming, existing
	if incoming.UpdatedAt.Before(existing.UpdatedAt) {
		newer, older = existing, incoming
	}

	merged := newer
	if merged.Content == "" {
		merged.Content = older.Content
	}
	if merged.Role == "" {
		merged.Role = older.Role
	}
	if merged.ClientMessageID == "" {
		merged.ClientMessageID = older.ClientMessageID
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = older.CreatedAt
	}
	if len(merged.OrderCards) == 0 {
		merged.OrderCards = older.OrderCards
	}
	merged.Attachment = combineAttachment(older.Attachment, merged.Attachment)
	return merged
}

func combineAttachment(older, newer *entity.Attachment) *entity.Attachment {
	if newer == nil {
		return older
	}
	if older == nil {
		return newer
	}

	att := *newer
	if att.AudioURL == "" {
		att.AudioURL = older.AudioURL
	}
	// A transcript is expensive to produce; it is only replaced, never
	// silently dropped.
	if att.Transcript == "" {
		att.Transcript = older.Transcript
	}
	if att.Duration == 0 {
		att.Duration = older.Duration
	}
	return &att
}
