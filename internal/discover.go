package internal

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SessionSet groups the logs of one input directory into main conversations
// and the sub-agents spawned by each of them.
type SessionSet struct {
	Mains  []*SessionFile
	Agents map[string][]*SessionFile // keyed by parent sessionId
}

// DiscoverSessions reads every *.jsonl file directly under dir. Per-file
// failures are logged and skipped; only an unreadable directory is an error.
func DiscoverSessions(dir string) (*SessionSet, error) {
	paths, err := listJSONL(dir)
	if err != nil {
		return nil, err
	}

	set := &SessionSet{Agents: make(map[string][]*SessionFile)}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			LogWarn("Failed to stat %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			continue
		}

		sf, err := ReadSessionFile(path)
		if err != nil {
			LogError("%v", err)
			continue
		}
		if sf == nil {
			continue
		}
		set.add(sf)
	}
	return set, nil
}

func (s *SessionSet) add(sf *SessionFile) {
	if sf.IsAgent() {
		s.Agents[sf.SessionID] = replaceOrAppend(s.Agents[sf.SessionID], sf)
		return
	}
	s.Mains = replaceOrAppend(s.Mains, sf)
}

// replaceOrAppend keeps the position of the first file with the same
// conversation id but the contents of the latest one.
func replaceOrAppend(files []*SessionFile, sf *SessionFile) []*SessionFile {
	for i, existing := range files {
		if existing.ConversationID() == sf.ConversationID() {
			LogDebug("Replacing %s with %s (same id %s)", existing.Path, sf.Path, sf.ConversationID())
			files[i] = sf
			return files
		}
	}
	return append(files, sf)
}

// AgentCount returns the number of sub-agent logs across all sessions
func (s *SessionSet) AgentCount() int {
	n := 0
	for _, agents := range s.Agents {
		n += len(agents)
	}
	return n
}

// Bundles returns main conversations whose id contains partial, paired with
// their sub-agents. An empty partial matches everything.
func (s *SessionSet) Bundles(partial string) []*Bundle {
	bundles := make([]*Bundle, 0, len(s.Mains))
	for _, main := range s.Mains {
		if partial != "" && !strings.Contains(main.SessionID, partial) {
			continue
		}
		bundles = append(bundles, &Bundle{Main: main, Agents: s.Agents[main.SessionID]})
	}
	return bundles
}

// listJSONL returns the *.jsonl files directly under dir in name order
func listJSONL(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &StorageError{Path: dir, Op: "readdir", Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
