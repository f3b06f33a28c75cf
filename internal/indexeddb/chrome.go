package indexeddb

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirSuffix names the LevelDB directory of one origin
const DirSuffix = ".indexeddb.leveldb"

// Profile is one Chrome user profile directory
type Profile struct {
	Name string
	Path string
}

// IndexedDBCount returns how many origins the profile stores IndexedDB data for
func (p Profile) IndexedDBCount() int {
	matches, err := filepath.Glob(filepath.Join(p.Path, "IndexedDB", "*"+DirSuffix))
	if err != nil {
		return 0
	}
	return len(matches)
}

// Profiles returns Default, every "Profile N" in name order, then Guest
// Profile, keeping only those that exist.
func Profiles(chromePath string) ([]Profile, error) {
	entries, err := os.ReadDir(chromePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var profiles []Profile
	add := func(name string) {
		path := filepath.Join(chromePath, name)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			profiles = append(profiles, Profile{Name: name, Path: path})
		}
	}

	add("Default")
	var numbered []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "Profile ") {
			numbered = append(numbered, entry.Name())
		}
	}
	sort.Strings(numbered)
	for _, name := range numbered {
		add(name)
	}
	add("Guest Profile")

	return profiles, nil
}

// FindDirs walks root for IndexedDB LevelDB directories. Unreadable
// subdirectories are skipped.
func FindDirs(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && strings.HasSuffix(d.Name(), DirSuffix) {
			dirs = append(dirs, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Origin derives the origin from a LevelDB directory name, for example
// "https_example.com_0".
func Origin(dir string) string {
	return strings.TrimSuffix(filepath.Base(dir), DirSuffix)
}

// ProfileName returns the profile that owns an IndexedDB directory
func ProfileName(dir string) string {
	return filepath.Base(filepath.Dir(filepath.Dir(dir)))
}
