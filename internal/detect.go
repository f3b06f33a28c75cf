package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// StoragePaths holds the detected locations of session data
type StoragePaths struct {
	ClaudeProjects string // ~/.claude/projects
	ChromeUserData string // Chrome user data directory (profiles live here)
	DataDir        string // this tool's cache and catalog directory
}

// DetectStoragePaths detects storage paths based on the operating system
func DetectStoragePaths() (StoragePaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return StoragePaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var chrome string
	switch runtime.GOOS {
	case "darwin":
		chrome = filepath.Join(home, "Library/Application Support/Google/Chrome")
	case "windows":
		chrome = filepath.Join(os.Getenv("LOCALAPPDATA"), "Google/Chrome/User Data")
	default:
		chrome = filepath.Join(home, ".config/google-chrome")
	}

	return StoragePaths{
		ClaudeProjects: filepath.Join(home, ".claude", "projects"),
		ChromeUserData: chrome,
		DataDir:        filepath.Join(home, ".crdbextract"),
	}, nil
}

// ProjectDirName converts a project path to the directory name Claude Code
// stores its sessions under: "/a/b" becomes "-a-b".
func ProjectDirName(project string) string {
	name := strings.ReplaceAll(project, "/", "-")
	if !strings.HasPrefix(name, "-") {
		name = "-" + name
	}
	return name
}

// FindSessionFiles returns every *.jsonl file one level below projectsDir,
// sorted. A missing directory yields no files.
func FindSessionFiles(projectsDir string) ([]string, error) {
	entries, err := os.ReadDir(projectsDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, &StorageError{Path: projectsDir, Op: "readdir", Err: err}
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(projectsDir, entry.Name(), "*.jsonl"))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entry.Name(), err)
		}
		files = append(files, matches...)
	}

	sort.Strings(files)
	return files, nil
}

// IsDir reports whether path exists and is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
