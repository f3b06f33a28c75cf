package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/render"
	"github.com/mtaran/crdbextract/testutil"
)

func testConvertOptions(in, out string) convertOptions {
	return convertOptions{
		InputDir:  in,
		OutputDir: out,
		Format:    "md",
		Render:    render.Options{TodoStyle: render.TodoSummary, TodoLimit: 5},
		Jobs:      2,
	}
}

func TestRunConvert(t *testing.T) {
	in := testutil.CreateSessionDir(t)
	out := filepath.Join(t.TempDir(), "nested", "out")

	var buf bytes.Buffer
	n, err := runConvert(context.Background(), &buf, testConvertOptions(in, out))
	if err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}
	if n != 1 {
		t.Errorf("runConvert() = %d, want 1", n)
	}

	want := "Found 1 main sessions and 1 agents\nWrote: main-1.md (1 agents)\n\nProcessed 1 conversations\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	doc, err := os.ReadFile(filepath.Join(out, "main-1.md"))
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	for _, s := range []string{"Investigate the bug", "All done", "Found it"} {
		if !strings.Contains(string(doc), s) {
			t.Errorf("document does not contain %q", s)
		}
	}
}

func TestRunConvert_SessionFilterAndFormat(t *testing.T) {
	in := testutil.CreateSessionDir(t)
	testutil.WriteSession(t, in, "main-2.jsonl", testutil.UserText("sess-2", "Second"))
	out := t.TempDir()

	opts := testConvertOptions(in, out)
	opts.Session = "sess-2"
	opts.Format = "json"

	var buf bytes.Buffer
	n, err := runConvert(context.Background(), &buf, opts)
	if err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}
	if n != 1 {
		t.Errorf("runConvert() = %d, want 1", n)
	}
	if !strings.Contains(buf.String(), "Found 2 main sessions and 1 agents") {
		t.Errorf("output = %q", buf.String())
	}
	if _, err := os.Stat(filepath.Join(out, "main-2.json")); err != nil {
		t.Errorf("main-2.json not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "main-1.json")); !os.IsNotExist(err) {
		t.Errorf("main-1.json should not be written")
	}
}

func TestRunConvert_Errors(t *testing.T) {
	in := testutil.CreateSessionDir(t)

	t.Run("missing input", func(t *testing.T) {
		_, err := runConvert(context.Background(), &bytes.Buffer{}, testConvertOptions(filepath.Join(in, "missing"), t.TempDir()))
		if err == nil {
			t.Error("expected error for missing input directory")
		}
	})

	t.Run("bad format", func(t *testing.T) {
		opts := testConvertOptions(in, t.TempDir())
		opts.Format = "pdf"
		if _, err := runConvert(context.Background(), &bytes.Buffer{}, opts); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("output is a file", func(t *testing.T) {
		file := testutil.WriteRaw(t, t.TempDir(), "taken", "x")
		if _, err := runConvert(context.Background(), &bytes.Buffer{}, testConvertOptions(in, file)); err == nil {
			t.Error("expected error when output cannot be created")
		}
	})
}

func TestRunConvert_EmptyDirectory(t *testing.T) {
	var buf bytes.Buffer
	n, err := runConvert(context.Background(), &buf, testConvertOptions(t.TempDir(), t.TempDir()))
	if err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}
	if n != 0 {
		t.Errorf("runConvert() = %d, want 0", n)
	}
	if !strings.HasSuffix(buf.String(), "Processed 0 conversations\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunConvert_RecordsCatalog(t *testing.T) {
	in := testutil.CreateSessionDir(t)
	out := t.TempDir()
	catalog := filepath.Join(t.TempDir(), "catalog.db")

	opts := testConvertOptions(in, out)
	opts.CatalogPath = catalog
	if _, err := runConvert(context.Background(), &bytes.Buffer{}, opts); err != nil {
		t.Fatalf("runConvert() error = %v", err)
	}

	db, err := internal.OpenDatabase(catalog)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	convs, err := internal.ListConversions(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("ListConversions() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversions, want 1", len(convs))
	}
	c := convs[0]
	if c.SessionID != "sess-1" || c.Agents != 1 || c.Format != "md" {
		t.Errorf("conversion = %+v", c)
	}
	if c.OutputPath != filepath.Join(out, "main-1.md") {
		t.Errorf("OutputPath = %q", c.OutputPath)
	}
	if c.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestNewConvertOptions(t *testing.T) {
	defer func() {
		convertTodoStyle, convertJobs, convertCatalog, convertNoCatalog = "", 0, "", false
	}()

	cfg := &internal.Config{TodoStyle: "checklist", TodoLimit: 3, Jobs: 7, CatalogPath: "/cfg/catalog.db"}

	opts, err := newConvertOptions(cfg, "in", "out")
	if err != nil {
		t.Fatalf("newConvertOptions() error = %v", err)
	}
	if opts.Render.TodoStyle != render.TodoChecklist || opts.Render.TodoLimit != 3 {
		t.Errorf("Render = %+v", opts.Render)
	}
	if opts.Jobs != 7 || opts.CatalogPath != "/cfg/catalog.db" {
		t.Errorf("opts = %+v", opts)
	}

	convertJobs, convertCatalog = 2, "/flag.db"
	opts, _ = newConvertOptions(cfg, "in", "out")
	if opts.Jobs != 2 || opts.CatalogPath != "/flag.db" {
		t.Errorf("flags should override config: %+v", opts)
	}

	convertNoCatalog = true
	opts, _ = newConvertOptions(cfg, "in", "out")
	if opts.CatalogPath != "" {
		t.Errorf("--no-catalog should disable the catalog, got %q", opts.CatalogPath)
	}

	convertTodoStyle = "fancy"
	if _, err := newConvertOptions(cfg, "in", "out"); err == nil {
		t.Error("expected error for unknown todo style")
	}
}
