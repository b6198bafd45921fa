// Package filestore persists sessions as one JSON file each, with an LRU
// read cache in front of the disk.
package filestore

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

	lru "github.com/hashicorp/golang-lru/v2"

	"toolchat/internal/logging"
	"toolchat/internal/ports"
	"toolchat/internal/utils/id"
)

const cacheSize = 64

type store struct {
	baseDir string
	logger  logging.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, *ports.Session]
}

// New creates a file-backed session store rooted at baseDir. A leading ~/ is
// expanded to the home directory.
func New(baseDir string, logger logging.Logger) (ports.SessionStore, error) {
	if strings.HasPrefix(baseDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		baseDir = filepath.Join(home, baseDir[2:])
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	cache, err := lru.New[string, *ports.Session](cacheSize)
	if err != nil {
		return nil, err
	}
	return &store{
		baseDir: baseDir,
		logger:  logging.OrNop(logger),
		cache:   cache,
	}, nil
}

func (s *store) path(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID+".json")
}

// snapshot copies a session so cached objects never escape the store. The
// Messages slice and Metadata map are the mutable parts worth detaching.
func snapshot(session *ports.Session) *ports.Session {
	out := *session
	out.Messages = make([]ports.StoredMessage, len(session.Messages))
	copy(out.Messages, session.Messages)
	if session.Metadata != nil {
		out.Metadata = make(map[string]string, len(session.Metadata))
		for k, v := range session.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

func (s *store) Create(_ context.Context, title string) (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &ports.Session{
		ID:        id.NewSessionID(),
		Title:     title,
		Messages:  []ports.StoredMessage{},
		Metadata:  map[string]string{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return nil, err
	}
	// O_EXCL so an id collision cannot silently clobber a session.
	f, err := os.OpenFile(s.path(session.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create session file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return nil, fmt.Errorf("write session: %w", err)
	}

	s.cache.Add(session.ID, session)
	s.logger.Debug("filestore: created session %s", session.ID)
	return snapshot(session), nil
}

func (s *store) Get(_ context.Context, sessionID string) (*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.getLocked(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(session), nil
}

func (s *store) getLocked(sessionID string) (*ports.Session, error) {
	if session, ok := s.cache.Get(sessionID); ok {
		return session, nil
	}
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	var session ports.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	s.cache.Add(sessionID, &session)
	return &session, nil
}

func (s *store) List(_ context.Context) ([]*ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}
	var sessions []*ports.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		session, err := s.getLocked(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Warn("filestore: skipping unreadable session file %s: %v", name, err)
			continue
		}
		sessions = append(sessions, snapshot(session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *store) Save(_ context.Context, session *ports.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Detach from the caller's pointer so it cannot alias the cache entry.
	return s.saveLocked(snapshot(session))
}

func (s *store) saveLocked(session *ports.Session) error {
	session.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(session.ID), data, 0644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.cache.Add(session.ID, session)
	return nil
}

func (s *store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(sessionID)
	if err := os.Remove(s.path(sessionID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session not found: %s", sessionID)
		}
		return err
	}
	return nil
}

func (s *store) AppendMessage(_ context.Context, sessionID string, msg ports.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	session.Messages = append(session.Messages, msg)
	return s.saveLocked(session)
}

func (s *store) Messages(_ context.Context, sessionID string) ([]ports.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getLocked(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]ports.StoredMessage, len(session.Messages))
	copy(out, session.Messages)
	return out, nil
}
