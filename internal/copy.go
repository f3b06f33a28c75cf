package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyResult describes one session file copy
type CopyResult struct {
	Source  string
	Dest    string
	Skipped bool // destination already had identical content
}

// CopiedName prefixes a session file name with its project directory so
// files from different projects cannot collide.
func CopiedName(src string) string {
	project := filepath.Base(filepath.Dir(src))
	return fmt.Sprintf("%s_%s", project, filepath.Base(src))
}

// CopySessionFile copies src into outputDir under CopiedName, preserving the
// modification time. Identical existing destinations are left untouched.
func CopySessionFile(src, outputDir string) (CopyResult, error) {
	dest := filepath.Join(outputDir, CopiedName(src))
	result := CopyResult{Source: src, Dest: dest}

	same, err := SameContent(src, dest)
	if err != nil {
		return result, err
	}
	if same {
		result.Skipped = true
		return result, nil
	}

	if err := copyFile(src, dest); err != nil {
		return result, &StorageError{Path: src, Op: "copy", Err: err}
	}
	return result, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// CopyDir recursively copies a directory tree, used to snapshot databases
// that a running application may hold locked.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}
