package internal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single JSONL line; tool outputs can be very large
var maxLineSize = 64 * 1024 * 1024

var errLineTooLong = errors.New("line too long")

// ParseJSONL reads newline-delimited JSON events. Malformed and oversized
// lines are logged and skipped; only read failures are returned.
func ParseJSONL(r io.Reader, name string) ([]*RawEvent, error) {
	br := bufio.NewReaderSize(r, 256*1024)

	var events []*RawEvent
	lineNum := 0
	for {
		raw, err := readLine(br)
		if err == io.EOF && len(raw) == 0 {
			break
		}
		lineNum++
		if errors.Is(err, errLineTooLong) {
			perr := &ParseError{Source: "jsonl", Key: name, Line: lineNum, Err: fmt.Errorf("line exceeds %d bytes", maxLineSize)}
			LogWarn("%v", perr)
			continue
		}
		if err != nil && err != io.EOF {
			return events, &StorageError{Path: name, Op: "read", Err: err}
		}

		if line := bytes.TrimSpace(raw); len(line) > 0 {
			var event RawEvent
			if uerr := json.Unmarshal(line, &event); uerr != nil {
				perr := &ParseError{Source: "jsonl", Key: name, Line: lineNum, Err: uerr}
				LogWarn("%v", perr)
			} else {
				events = append(events, &event)
			}
		}
		if err == io.EOF {
			break
		}
	}
	return events, nil
}

// readLine returns the next line including its terminator. A line longer
// than maxLineSize is consumed in full and reported as errLineTooLong.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		frag, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(frag) > maxLineSize+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if tooLong && (err == nil || err == io.EOF) {
			return nil, errLineTooLong
		}
		return line, err
	}
}

// ReadSessionFile parses a session log. It returns nil without error when the
// file has no event carrying a sessionId.
func ReadSessionFile(path string) (*SessionFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, &StorageError{Path: path, Op: "stat", Err: err}
	}

	events, err := ParseJSONL(f, path)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		return &SessionFile{
			Path:      path,
			Stem:      stem(path),
			SessionID: e.SessionID,
			AgentID:   e.AgentID,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Events:    events,
		}, nil
	}

	LogDebug("No sessionId found in %s", path)
	return nil, nil
}

// WriteJSONL encodes values one per line
func WriteJSONL(w io.Writer, values ...interface{}) error {
	enc := json.NewEncoder(w)
	for i, v := range values {
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode line %d: %w", i+1, err)
		}
	}
	return nil
}
