package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/indexeddb"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that session data can be located and read",
	Long: `Check the health of crdbextract by verifying:
  • the Claude projects directory and its session files
  • the Chrome user data directory and its IndexedDB databases
  • the conversion catalog

The check passes when at least one source of session data is available.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runHealthcheck(cmd.Context(), cmd.OutOrStdout(), cfg, healthcheckDetails)
	},
}

// healthReport is what the healthcheck found
type healthReport struct {
	SessionFiles int
	ClaudeOK     bool
	IndexedDBs   int
	ChromeOK     bool
	CatalogOK    bool
}

// Passed reports whether at least one source of session data is usable
func (r healthReport) Passed() bool {
	return (r.ClaudeOK && r.SessionFiles > 0) || (r.ChromeOK && r.IndexedDBs > 0)
}

// healthWriter formats one check's findings
type healthWriter struct {
	w       io.Writer
	details bool
}

func (h healthWriter) say(style lipgloss.Style, format string, args ...interface{}) {
	_, _ = fmt.Fprintln(h.w, style.Render(fmt.Sprintf(format, args...)))
}

func (h healthWriter) detail(format string, args ...interface{}) {
	if h.details {
		_, _ = fmt.Fprintf(h.w, "   "+format+"\n", args...)
	}
}

func runHealthcheck(ctx context.Context, w io.Writer, cfg *internal.Config, details bool) error {
	var report healthReport
	checks := []struct {
		title string
		run   func(h healthWriter)
	}{
		{"Checking Claude projects directory...", func(h healthWriter) { checkClaudeDir(h, cfg, &report) }},
		{"Checking Chrome IndexedDB storage...", func(h healthWriter) { checkChromeDir(h, cfg, &report) }},
		{"Checking conversion catalog...", func(h healthWriter) { checkCatalog(h, cfg, &report) }},
	}

	// each check writes into its own buffer so the report is not
	// interleaved with the spinner
	found := make([]bytes.Buffer, len(checks))
	steps := make([]internal.ProgressStep, len(checks))
	for i, c := range checks {
		i, c := i, c
		steps[i] = internal.ProgressStep{
			Message: c.title,
			Fn: func() error {
				c.run(healthWriter{w: &found[i], details: details})
				return nil
			},
		}
	}
	if err := internal.ShowProgressWithSteps(ctx, steps); err != nil {
		return err
	}

	out := healthWriter{w: w, details: details}
	_, _ = fmt.Fprintln(w, sectionStyle.Render("crdbextract health check"))
	_, _ = fmt.Fprintln(w)
	for i, c := range checks {
		out.say(infoStyle, "Step %d: %s", i+1, c.title)
		_, _ = w.Write(found[i].Bytes())
		_, _ = fmt.Fprintln(w)
	}

	// Summary
	_, _ = fmt.Fprintln(w, sectionStyle.Render("Summary"))
	_, _ = fmt.Fprintln(w)
	if !report.Passed() {
		out.say(errorStyle, "❌ Health check failed")
		_, _ = fmt.Fprintln(w, "   • No session logs or IndexedDB databases found")
		return fmt.Errorf("health check failed: no session data available")
	}

	out.say(successStyle, "✅ Health check passed!")
	out.say(successStyle, "   • Session files: %d", report.SessionFiles)
	out.say(successStyle, "   • IndexedDB databases: %d", report.IndexedDBs)
	return nil
}

func checkClaudeDir(h healthWriter, cfg *internal.Config, report *healthReport) {
	if internal.IsDir(cfg.ClaudeDir) {
		report.ClaudeOK = true
		files, err := internal.FindSessionFiles(cfg.ClaudeDir)
		switch {
		case err != nil:
			h.say(warningStyle, "⚠️  Error scanning %s: %v", cfg.ClaudeDir, err)
		case len(files) > 0:
			report.SessionFiles = len(files)
			h.say(successStyle, "✅ Found %d session file(s)", len(files))
			for i, f := range files {
				if i == 5 {
					h.detail("... and %d more", len(files)-5)
					break
				}
				h.detail("[%d] %s", i+1, f)
			}
		default:
			h.say(warningStyle, "⚠️  Projects directory exists but holds no session files")
		}
	} else {
		h.say(warningStyle, "⚠️  Claude projects directory not found")
	}
	h.detail("Directory: %s", cfg.ClaudeDir)
}

func checkChromeDir(h healthWriter, cfg *internal.Config, report *healthReport) {
	if internal.IsDir(cfg.ChromeDir) {
		report.ChromeOK = true
		dirs, err := indexeddb.FindDirs(cfg.ChromeDir)
		switch {
		case err != nil:
			h.say(warningStyle, "⚠️  Error scanning %s: %v", cfg.ChromeDir, err)
		case len(dirs) > 0:
			report.IndexedDBs = len(dirs)
			h.say(successStyle, "✅ Found %d IndexedDB database(s)", len(dirs))
		default:
			h.say(warningStyle, "⚠️  Chrome directory exists but holds no IndexedDB databases")
		}
	} else {
		h.say(warningStyle, "⚠️  Chrome user data directory not found")
	}
	h.detail("Directory: %s", cfg.ChromeDir)
}

func checkCatalog(h healthWriter, cfg *internal.Config, report *healthReport) {
	db, err := internal.OpenDatabase(cfg.CatalogPath)
	if err != nil {
		h.say(warningStyle, "⚠️  Catalog not available (created by the first convert)")
		h.detail("%v", err)
	} else {
		report.CatalogOK = true
		_ = db.Close()
		h.say(successStyle, "✅ Catalog opens")
	}
	h.detail("Database: %s", cfg.CatalogPath)
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckDetails, "details", false, "Show detailed diagnostic information")
}
