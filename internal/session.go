package internal

import (
	"path/filepath"
	"strings"
	"time"
)

// SessionFile is one JSONL log on disk: a main conversation or a sub-agent
type SessionFile struct {
	Path      string
	Stem      string
	SessionID string
	AgentID   string
	Size      int64
	ModTime   time.Time
	Events    []*RawEvent
}

// IsAgent reports whether the file holds a spawned sub-conversation
func (s *SessionFile) IsAgent() bool {
	return s.AgentID != ""
}

// ConversationID returns the identifier other logs use to refer to this one
func (s *SessionFile) ConversationID() string {
	if s.IsAgent() {
		return s.AgentID
	}
	return s.SessionID
}

// Cwd returns the first non-empty working directory seen across events
func (s *SessionFile) Cwd() string {
	for _, e := range s.Events {
		if e.Cwd != "" {
			return e.Cwd
		}
	}
	return ""
}

// FirstTimestamp returns the first non-empty raw timestamp, or empty
func (s *SessionFile) FirstTimestamp() string {
	for _, e := range s.Events {
		if e.Timestamp != "" {
			return e.Timestamp
		}
	}
	return ""
}

// Bundle is a main conversation together with the sub-agents it spawned
type Bundle struct {
	Main   *SessionFile
	Agents []*SessionFile
}

// AgentIDs returns the distinct agent identifiers in bundle order
func (b *Bundle) AgentIDs() []string {
	ids := make([]string, 0, len(b.Agents))
	for _, a := range b.Agents {
		ids = append(ids, a.AgentID)
	}
	return ids
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
