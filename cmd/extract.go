package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/mtaran/crdbextract/internal"
	"github.com/spf13/cobra"
)

var (
	extractClaudeDir string
	extractList      bool
	extractProject   string
	extractOutput    string
)

// extractOptions selects which raw session logs to copy and where
type extractOptions struct {
	ClaudeDir string
	List      bool
	Project   string
	Output    string
}

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Copy raw session logs out of the Claude projects directory",
	Long: `Copy Claude Code session JSONL files into one flat directory.

Each file is named <project>_<file> so logs from different projects do not
collide. Files whose destination already holds identical content are skipped.

Examples:
  crdbextract extract --list
  crdbextract extract --output ./sessions
  crdbextract extract --project /home/me/myproject --output ./sessions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := extractOptions{
			ClaudeDir: extractClaudeDir,
			List:      extractList,
			Project:   extractProject,
			Output:    extractOutput,
		}
		if opts.ClaudeDir == "" {
			opts.ClaudeDir = cfg.ClaudeDir
		}

		_, err = runExtract(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		return err
	},
}

// runExtract lists or copies session files and returns how many were copied
func runExtract(w, errW io.Writer, opts extractOptions) (int, error) {
	if opts.List {
		files, err := internal.FindSessionFiles(opts.ClaudeDir)
		if err != nil {
			return 0, err
		}
		_, _ = fmt.Fprintf(w, "Claude Code sessions in: %s\n\n", opts.ClaudeDir)
		for _, f := range files {
			_, _ = fmt.Fprintf(w, "  %s/%s\n", filepath.Base(filepath.Dir(f)), filepath.Base(f))
		}
		return 0, nil
	}

	if opts.Output == "" {
		return 0, errors.New("--output directory is required")
	}

	files, err := sessionFilesToCopy(opts)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		return 0, &internal.StorageError{Path: opts.Output, Op: "mkdir", Err: err}
	}

	dedup := internal.NewDeduplicator()
	copied, skipped, duplicates := 0, 0, 0
	for _, f := range files {
		if first, err := dedup.Add(f); err != nil {
			internal.LogWarn("%v", err)
		} else if first != "" {
			duplicates++
			internal.LogDebug("%s has the same content as %s", f, first)
		}

		res, err := internal.CopySessionFile(f, opts.Output)
		if err != nil {
			internal.LogError("%v", err)
			continue
		}
		if res.Skipped {
			skipped++
			internal.LogDebug("Unchanged: %s", filepath.Base(res.Dest))
			continue
		}
		copied++
		_, _ = fmt.Fprintf(w, "Copied: %s\n", filepath.Base(res.Dest))
	}

	_, _ = fmt.Fprintf(errW, "\nCopied %d file(s) to %s\n", copied, opts.Output)
	if skipped > 0 {
		_, _ = fmt.Fprintf(errW, "Skipped %d unchanged file(s)\n", skipped)
	}
	if duplicates > 0 {
		_, _ = fmt.Fprintf(errW, "%d file(s) duplicate another session's content\n", duplicates)
	}
	return copied, nil
}

// sessionFilesToCopy returns the logs of one project, or of every project
func sessionFilesToCopy(opts extractOptions) ([]string, error) {
	if opts.Project == "" {
		return internal.FindSessionFiles(opts.ClaudeDir)
	}

	projectDir := filepath.Join(opts.ClaudeDir, internal.ProjectDirName(opts.Project))
	if !internal.IsDir(projectDir) {
		return nil, fmt.Errorf("project not found: %s (looked in %s)", opts.Project, projectDir)
	}

	files, err := filepath.Glob(filepath.Join(projectDir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", projectDir, err)
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractClaudeDir, "claude-dir", "", "Claude projects directory (default ~/.claude/projects)")
	extractCmd.Flags().BoolVarP(&extractList, "list", "l", false, "List available session files")
	extractCmd.Flags().StringVarP(&extractProject, "project", "p", "", "Only copy sessions of this project path")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "Directory to copy session files into")
}
