package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/export"
	"github.com/mtaran/crdbextract/internal/render"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	convertSession   string
	convertFormat    string
	convertTodoStyle string
	convertJobs      int
	convertCatalog   string
	convertNoCatalog bool
)

// convertOptions is everything one conversion run needs
type convertOptions struct {
	InputDir    string
	OutputDir   string
	Session     string
	Format      string
	Render      render.Options
	Jobs        int
	CatalogPath string // empty disables recording
}

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <input_dir> <output_dir>",
	Short: "Render session logs as Markdown transcripts",
	Long: `Render every main conversation in input_dir into output_dir.

Each conversation becomes <file>.md (or .json, .jsonl, .yaml with --format).
Sub-agent logs from the same directory are inlined where they were spawned;
agents that were never referenced are appended at the end.

Every written file is recorded in the conversion catalog unless --no-catalog
is given. See 'crdbextract catalog'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts, err := newConvertOptions(cfg, args[0], args[1])
		if err != nil {
			return err
		}
		_, err = runConvert(cmd.Context(), cmd.OutOrStdout(), opts)
		return err
	},
}

func newConvertOptions(cfg *internal.Config, input, output string) (convertOptions, error) {
	styleName := convertTodoStyle
	if styleName == "" {
		styleName = cfg.TodoStyle
	}
	style, err := render.ParseTodoStyle(styleName)
	if err != nil {
		return convertOptions{}, err
	}

	jobs := convertJobs
	if jobs <= 0 {
		jobs = cfg.Jobs
	}

	catalog := convertCatalog
	if catalog == "" {
		catalog = cfg.CatalogPath
	}
	if convertNoCatalog {
		catalog = ""
	}

	return convertOptions{
		InputDir:    input,
		OutputDir:   output,
		Session:     convertSession,
		Format:      convertFormat,
		Render:      render.Options{TodoStyle: style, TodoLimit: cfg.TodoLimit},
		Jobs:        jobs,
		CatalogPath: catalog,
	}, nil
}

// converted is the outcome of writing one bundle
type converted struct {
	path string
	err  error
}

// runConvert renders the selected conversations and returns how many were
// written. Only an unreadable input directory, an unusable output directory
// or a bad format is an error; single conversations fail on their own.
func runConvert(ctx context.Context, w io.Writer, opts convertOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	exporter, err := export.NewExporter(opts.Format, opts.Render)
	if err != nil {
		return 0, err
	}

	set, err := internal.DiscoverSessions(opts.InputDir)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "Found %d main sessions and %d agents\n", len(set.Mains), set.AgentCount())

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	bundles := set.Bundles(opts.Session)
	results := make([]converted, len(bundles))

	err = internal.ShowProgress(ctx, fmt.Sprintf("Rendering %d conversation(s)", len(bundles)), func() error {
		g, gctx := errgroup.WithContext(ctx)
		if opts.Jobs > 0 {
			g.SetLimit(opts.Jobs)
		}
		for i, b := range bundles {
			i, b := i, b
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = writeBundle(exporter, b, opts.OutputDir)
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return 0, err
	}

	var catalog *internal.Catalog
	if opts.CatalogPath != "" {
		catalog, err = internal.OpenCatalog(ctx, opts.CatalogPath)
		if err != nil {
			internal.LogWarn("Conversion catalog disabled: %v", err)
		} else {
			defer func() { _ = catalog.Close() }()
		}
	}

	processed := 0
	for i, b := range bundles {
		res := results[i]
		if res.err != nil {
			internal.LogError("%v", res.err)
			continue
		}
		processed++
		fmt.Fprintf(w, "Wrote: %s (%d agents)\n", filepath.Base(res.path), len(b.Agents))

		if catalog == nil {
			continue
		}
		err := catalog.Record(ctx, internal.Conversion{
			SessionID:  b.Main.SessionID,
			SourcePath: b.Main.Path,
			OutputPath: res.path,
			Format:     exporter.Extension(),
			Agents:     len(b.Agents),
			Started:    render.StartTime(b.Main.Events),
		})
		if err != nil {
			internal.LogWarn("%v", err)
		}
	}

	fmt.Fprintf(w, "\nProcessed %d conversations\n", processed)
	return processed, nil
}

// writeBundle renders into memory first so a failed export leaves no
// partial file behind.
func writeBundle(exporter export.Exporter, b *internal.Bundle, outputDir string) converted {
	path := filepath.Join(outputDir, fmt.Sprintf("%s.%s", b.Main.Stem, exporter.Extension()))

	var buf bytes.Buffer
	if err := exporter.Export(b, &buf); err != nil {
		return converted{path: path, err: &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return converted{path: path, err: &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}}
	}
	return converted{path: path}
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertSession, "session", "", "Only process sessions whose id contains this value")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "md", "Output format (md, json, jsonl, yaml)")
	convertCmd.Flags().StringVar(&convertTodoStyle, "todo-style", "", "TodoWrite rendering: summary or checklist (default from config)")
	convertCmd.Flags().IntVarP(&convertJobs, "jobs", "j", 0, "Conversations rendered in parallel (default from config)")
	convertCmd.Flags().StringVar(&convertCatalog, "catalog", "", "Conversion catalog database (default from config)")
	convertCmd.Flags().BoolVar(&convertNoCatalog, "no-catalog", false, "Do not record conversions")
}
