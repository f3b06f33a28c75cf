package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheVersion = "2"

// CacheManager keeps a YAML index of session summaries so listing a large
// directory does not re-read every file.
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	CacheVersion string    `yaml:"cache_version"`
	CreatedAt    time.Time `yaml:"created_at"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// SessionIndexEntry summarizes one session file
type SessionIndexEntry struct {
	Path      string    `yaml:"path"`
	Stem      string    `yaml:"stem"`
	SessionID string    `yaml:"session_id"`
	AgentID   string    `yaml:"agent_id,omitempty"`
	Cwd       string    `yaml:"cwd,omitempty"`
	Started   string    `yaml:"started,omitempty"`
	Events    int       `yaml:"events"`
	Size      int64     `yaml:"size"`
	ModTime   time.Time `yaml:"mod_time"`
}

// IsAgent reports whether the entry describes a sub-agent file
func (e SessionIndexEntry) IsAgent() bool {
	return e.AgentID != ""
}

// DirIndex is the cached listing of one input directory
type DirIndex struct {
	Sessions []SessionIndexEntry `yaml:"sessions"`
}

// SessionIndex is the whole index file, keyed by absolute input directory
type SessionIndex struct {
	Dirs     map[string]*DirIndex `yaml:"dirs"`
	Metadata CacheMetadata        `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetIndexPath returns the path to the session index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "index.yaml")
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// LoadIndex loads the session index
func (cm *CacheManager) LoadIndex() (*SessionIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: "cache", Key: cm.GetIndexPath(), Err: err}
	}
	if index.Metadata.CacheVersion != cacheVersion {
		return nil, fmt.Errorf("cache version %q is stale", index.Metadata.CacheVersion)
	}
	if index.Dirs == nil {
		index.Dirs = make(map[string]*DirIndex)
	}

	return &index, nil
}

// SaveIndex saves the session index
func (cm *CacheManager) SaveIndex(index *SessionIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// IsCacheValid reports whether the cached listing of dir still matches the
// files on disk by path, size and modification time.
func (cm *CacheManager) IsCacheValid(dir string) (bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	index, err := cm.LoadIndex()
	if err != nil {
		return false, nil
	}
	cached, ok := index.Dirs[abs]
	if !ok {
		return false, nil
	}

	files, err := listJSONL(abs)
	if err != nil {
		return false, err
	}
	if len(files) != len(cached.Sessions) {
		return false, nil
	}
	for i, path := range files {
		entry := cached.Sessions[i]
		info, err := os.Stat(path)
		if err != nil || entry.Path != path {
			return false, nil
		}
		if info.Size() != entry.Size || !info.ModTime().Equal(entry.ModTime) {
			return false, nil
		}
	}
	return true, nil
}

// Sessions returns the session summaries for dir, using the cached index when
// it is still valid and rebuilding it otherwise.
func (cm *CacheManager) Sessions(dir string) ([]SessionIndexEntry, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if ok, err := cm.IsCacheValid(abs); err != nil {
		return nil, err
	} else if ok {
		LogDebug("Using cached index for %s", abs)
		index, err := cm.LoadIndex()
		if err == nil {
			return index.Dirs[abs].Sessions, nil
		}
	}

	entries, err := indexDir(abs)
	if err != nil {
		return nil, err
	}
	if err := cm.SaveDir(abs, entries); err != nil {
		LogWarn("Failed to save cache index: %v", err)
	}
	return entries, nil
}

// SaveDir replaces the cached listing of one directory
func (cm *CacheManager) SaveDir(dir string, entries []SessionIndexEntry) error {
	index, err := cm.LoadIndex()
	if err != nil {
		index = &SessionIndex{
			Dirs: make(map[string]*DirIndex),
			Metadata: CacheMetadata{
				CacheVersion: cacheVersion,
				CreatedAt:    time.Now(),
			},
		}
	}
	index.Dirs[dir] = &DirIndex{Sessions: entries}
	index.Metadata.UpdatedAt = time.Now()
	return cm.SaveIndex(index)
}

// ClearCache clears the cache
func (cm *CacheManager) ClearCache() error {
	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// indexDir reads every non-empty session file in dir. Unreadable files get an
// entry with no session id so the listing stays aligned with the directory.
func indexDir(dir string) ([]SessionIndexEntry, error) {
	files, err := listJSONL(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]SessionIndexEntry, 0, len(files))
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &StorageError{Path: path, Op: "stat", Err: err}
		}
		entry := SessionIndexEntry{
			Path:    path,
			Stem:    stem(path),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if info.Size() > 0 {
			sf, err := ReadSessionFile(path)
			if err != nil {
				LogWarn("Skipping %s: %v", path, err)
			} else if sf != nil {
				entry.SessionID = sf.SessionID
				entry.AgentID = sf.AgentID
				entry.Cwd = sf.Cwd()
				entry.Started = sf.FirstTimestamp()
				entry.Events = len(sf.Events)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
