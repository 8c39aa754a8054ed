package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"NovaCS/entity"
	"NovaCS/internal/lib/sl"
)

// FileStore keeps one JSON file per conversation under dir. It is the
// restart-surviving analog of the widget's browser storage.
type FileStore struct {
	dir string
	log *slog.Logger
}

func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{
		dir: dir,
		log: logger.With(sl.Module("cache")),
	}, nil
}

func (s *FileStore) path(conversationID string) string {
	return filepath.Join(s.dir, "messages-"+conversationID+".json")
}

// Get returns the cached list, or false when absent or unreadable.
// A corrupt file is treated as a miss, not an error.
func (s *FileStore) Get(conversationID string) ([]entity.Message, bool) {
	raw, err := os.ReadFile(s.path(conversationID))
	if err != nil {
		return nil, false
	}

	var msgs []entity.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		s.log.Warn("discarding corrupt cache entry",
			slog.String("conversation_id", conversationID), sl.Err(err))
		_ = os.Remove(s.path(conversationID))
		return nil, false
	}
	return msgs, true
}

// Put replaces the cached list atomically (write then rename), so a
// crash mid-write never leaves a truncated entry behind.
func (s *FileStore) Put(conversationID string, msgs []entity.Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	tmp := s.path(conversationID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, s.path(conversationID)); err != nil {
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(conversationID string) error {
	err := os.Remove(s.path(conversationID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
