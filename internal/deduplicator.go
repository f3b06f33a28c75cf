package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Deduplicator remembers file contents by hash within one run
type Deduplicator struct {
	seen map[string]string // hash -> first path
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]string)}
}

// Add records path and returns the earlier path with identical content, or
// empty if the content is new.
func (d *Deduplicator) Add(path string) (string, error) {
	hash, err := HashFile(path)
	if err != nil {
		return "", err
	}
	if first, ok := d.seen[hash]; ok {
		return first, nil
	}
	d.seen[hash] = path
	return "", nil
}

// Len returns the number of distinct contents seen
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// HashFile returns the hex sha256 of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &StorageError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", &StorageError{Path: path, Op: "read", Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SameContent reports whether two files have identical content. A missing
// file is never the same as anything.
func SameContent(a, b string) (bool, error) {
	if _, err := os.Stat(b); os.IsNotExist(err) {
		return false, nil
	}
	ha, err := HashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := HashFile(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
