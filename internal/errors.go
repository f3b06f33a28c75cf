package internal

import "fmt"

// StorageError represents errors accessing session files or directories
type StorageError struct {
	Path string
	Op   string // "open", "read", "stat", "readdir", "copy"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents a single undecodable record
type ParseError struct {
	Source string // "jsonl", "config", "cache"
	Key    string // file path
	Line   int    // 1-based, 0 when not line oriented
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error [%s] %s line %d: %v", e.Source, e.Key, e.Line, e.Err)
	}
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ExtractionError represents errors reading a browser database
type ExtractionError struct {
	Path string
	Op   string // "copy", "open", "iterate"
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
