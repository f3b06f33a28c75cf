package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mtaran/crdbextract/internal"
	"github.com/spf13/cobra"
)

var (
	listClearCache bool
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	workspaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list <input_dir>",
	Short: "List conversations in a directory of session logs",
	Long: `List the main conversations found in input_dir with their start time,
number of sub-agents, event count, file size and working directory.

Summaries are cached in the cache directory and rebuilt when any log file
changes size or modification time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cacheManager := internal.NewCacheManager(cfg.CacheDir)
		if listClearCache {
			if err := cacheManager.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		entries, err := cacheManager.Sessions(args[0])
		if err != nil {
			return err
		}

		displaySessions(cmd.OutOrStdout(), entries)
		return nil
	},
}

// sessionRow is one main conversation in the listing
type sessionRow struct {
	entry  internal.SessionIndexEntry
	agents int
}

// sessionRows keeps main conversations in file order and counts the agents
// that belong to each
func sessionRows(entries []internal.SessionIndexEntry) []sessionRow {
	agents := make(map[string]int)
	for _, e := range entries {
		if e.IsAgent() {
			agents[e.SessionID]++
		}
	}

	var rows []sessionRow
	for _, e := range entries {
		if e.IsAgent() || e.SessionID == "" {
			continue
		}
		rows = append(rows, sessionRow{entry: e, agents: agents[e.SessionID]})
	}
	return rows
}

func displaySessions(out io.Writer, entries []internal.SessionIndexEntry) {
	rows := sessionRows(entries)
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, internal.Header("No sessions found"))
		return
	}

	_, _ = fmt.Fprintln(out, internal.Header(fmt.Sprintf("Found %d session(s)", len(rows))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join([]string{
		titleStyle.Render("ID"),
		titleStyle.Render("Started"),
		titleStyle.Render("Agents"),
		titleStyle.Render("Events"),
		titleStyle.Render("Size"),
		titleStyle.Render("Cwd"),
	}, "\t"))

	for _, row := range rows {
		started := row.entry.Started
		if started == "" {
			started = "—"
		}

		cwd := row.entry.Cwd
		if len(cwd) > 50 {
			cwd = "..." + cwd[len(cwd)-47:]
		}

		_, _ = fmt.Fprintln(w, strings.Join([]string{
			idStyle.Render(internal.ShortID(row.entry.SessionID)),
			dateStyle.Render(started),
			countStyle.Render(strconv.Itoa(row.agents)),
			strconv.Itoa(row.entry.Events),
			humanize.Bytes(uint64(row.entry.Size)),
			workspaceStyle.Render(cwd),
		}, "\t"))
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the session index before listing")
}
