// Package memory is a small file-backed store for facts the assistant is
// asked to remember across sessions.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"toolchat/internal/logging"
	"toolchat/internal/utils/id"
)

// Entry is one remembered fact.
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists entries to a single JSON file. All operations serialize on
// an internal mutex; the file is rewritten whole on each mutation.
type Store struct {
	path   string
	logger logging.Logger

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

func NewStore(path string, logger logging.Logger) *Store {
	return &Store{path: path, logger: logging.OrNop(logger)}
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read memory file: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("decode memory file: %w", err)
	}
	s.loaded = true
	return nil
}

func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write memory file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Save appends a new entry and returns it with its generated id.
func (s *Store) Save(_ context.Context, content, category string, tags []string) (Entry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Entry{}, fmt.Errorf("memory content is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:        id.NewMemoryID(),
		Content:   content,
		Category:  category,
		Tags:      tags,
		CreatedAt: time.Now(),
	}
	s.entries = append(s.entries, entry)
	if err := s.persist(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return Entry{}, err
	}
	s.logger.Debug("memory: saved entry %s", entry.ID)
	return entry, nil
}

// Search returns entries whose content or tags contain the query,
// case-insensitively, newest first.
func (s *Store) Search(_ context.Context, query string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	var matches []Entry
	for _, entry := range s.entries {
		if needle == "" || strings.Contains(strings.ToLower(entry.Content), needle) ||
			tagsMatch(entry.Tags, needle) {
			matches = append(matches, entry)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

// All returns every entry, newest first.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	return s.Search(ctx, "")
}

// Delete removes an entry by id.
func (s *Store) Delete(_ context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	for i, entry := range s.entries {
		if entry.ID == entryID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return s.persist()
		}
	}
	return fmt.Errorf("memory entry not found: %s", entryID)
}

// PreferenceDigest renders preference-category entries as a bullet list for
// inclusion in the system prompt. Empty when nothing is stored.
func (s *Store) PreferenceDigest(ctx context.Context) string {
	entries, err := s.All(ctx)
	if err != nil {
		s.logger.Warn("memory: digest load failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, entry := range entries {
		if entry.Category != "preference" {
			continue
		}
		b.WriteString("- " + entry.Content + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func tagsMatch(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
