// Package session provides durable conversation session management.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/keihibot/keihibot/internal/provider"
)

// ErrOwnerMismatch is returned when a session on disk is owned by a
// different worker kind than the one asking for it. Sessions are never
// shared across worker kinds, so this is a contract violation.
var ErrOwnerMismatch = errors.New("session owned by another worker")

// Turn is one entry in a session's append-only conversation log.
type Turn struct {
	Role       string              `json:"role"`
	Content    string              `json:"content"`
	ToolCalls  []provider.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string              `json:"tool_call_id,omitempty"`
	Timestamp  time.Time           `json:"timestamp,omitempty"`
}

// Session is a durable conversational thread. Turns are only ever appended;
// prior turns are never rewritten.
type Session struct {
	Key       string    `json:"key"`
	Owner     string    `json:"owner"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a new session with the given key and owning worker kind.
func NewSession(key, owner string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Owner:     owner,
		Turns:     []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a turn to the session log.
func (s *Session) Append(turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	s.Turns = append(s.Turns, turn)
	s.UpdatedAt = time.Now()
}

// History returns the most recent turns, up to max. A max of zero or less
// returns the full log.
func (s *Session) History(max int) []Turn {
	if max <= 0 || len(s.Turns) <= max {
		result := make([]Turn, len(s.Turns))
		copy(result, s.Turns)
		return result
	}
	result := make([]Turn, max)
	copy(result, s.Turns[len(s.Turns)-max:])
	return result
}

// Manager persists sessions as one JSONL file per session key: a metadata
// line followed by one line per turn. Writes for the same key are
// serialized; there are no concurrent writers to one session's log.
type Manager struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*Session
}

// NewManager creates a session manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Manager{
		dir:   dir,
		cache: make(map[string]*Session),
	}, nil
}

// GetOrCreate returns the session for key, loading it from disk if it
// exists, or creating a fresh one owned by owner. Asking for a stored
// session with a different owner fails with ErrOwnerMismatch.
func (m *Manager) GetOrCreate(key, owner string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.cache[key]
	if !ok {
		s = m.load(key)
	}
	if s == nil {
		s = NewSession(key, owner)
	}
	if s.Owner != owner {
		return nil, fmt.Errorf("%w: session %s belongs to %q, requested by %q",
			ErrOwnerMismatch, key, s.Owner, owner)
	}
	m.cache[key] = s
	return s, nil
}

// Save writes the full session log to durable storage. It must complete
// before the invocation that produced the newest turns returns.
func (m *Manager) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.sessionPath(s.Key)
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}

	meta := map[string]any{
		"_type":      "metadata",
		"owner":      s.Owner,
		"created_at": s.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": s.UpdatedAt.Format(time.RFC3339Nano),
	}
	metaLine, _ := json.Marshal(meta)
	if _, err := file.Write(append(metaLine, '\n')); err != nil {
		file.Close()
		return fmt.Errorf("write session metadata: %w", err)
	}
	for _, turn := range s.Turns {
		line, err := json.Marshal(turn)
		if err != nil {
			file.Close()
			return fmt.Errorf("encode turn: %w", err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			file.Close()
			return fmt.Errorf("write turn: %w", err)
		}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync session file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	m.cache[s.Key] = s
	return nil
}

// Delete removes a session from the cache and from disk.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, key)
	if err := os.Remove(m.sessionPath(key)); err != nil {
		return false
	}
	return true
}

// Forget drops any cached sessions whose key starts with prefix without
// touching durable storage. Used when a conversational thread is reset.
func (m *Manager) Forget(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.cache {
		if strings.HasPrefix(key, prefix) {
			delete(m.cache, key)
		}
	}
}

// Info contains metadata about a stored session.
type Info struct {
	Key       string
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Path      string
}

// List returns information about all stored sessions.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	var infos []Info
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return infos
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		key := strings.TrimSuffix(entry.Name(), ".jsonl")
		key = strings.ReplaceAll(key, "_", ":")

		info := Info{Key: key, Path: path}
		if meta := readMetaLine(path); meta != nil {
			if owner, ok := meta["owner"].(string); ok {
				info.Owner = owner
			}
			if created, ok := meta["created_at"].(string); ok {
				info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
			}
			if updated, ok := meta["updated_at"].(string); ok {
				info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func (m *Manager) sessionPath(key string) string {
	safeKey := strings.ReplaceAll(key, ":", "_")
	// Strip path separators and traversal components to prevent path injection.
	safeKey = strings.ReplaceAll(safeKey, "/", "_")
	safeKey = strings.ReplaceAll(safeKey, "\\", "_")
	safeKey = strings.ReplaceAll(safeKey, "..", "_")
	return filepath.Join(m.dir, filepath.Base(safeKey)+".jsonl")
}

func (m *Manager) load(key string) *Session {
	file, err := os.Open(m.sessionPath(key))
	if err != nil {
		return nil
	}
	defer file.Close()

	s := NewSession(key, "")
	decoder := json.NewDecoder(file)
	for decoder.More() {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			break
		}

		var check map[string]any
		if json.Unmarshal(raw, &check) == nil && check["_type"] == "metadata" {
			if owner, ok := check["owner"].(string); ok {
				s.Owner = owner
			}
			if created, ok := check["created_at"].(string); ok {
				s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
			}
			if updated, ok := check["updated_at"].(string); ok {
				s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
			}
			continue
		}

		var turn Turn
		if json.Unmarshal(raw, &turn) == nil {
			s.Turns = append(s.Turns, turn)
		}
	}
	return s
}

func readMetaLine(path string) map[string]any {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var meta map[string]any
	if err := decoder.Decode(&meta); err != nil {
		return nil
	}
	if meta["_type"] != "metadata" {
		return nil
	}
	return meta
}
