package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/render"
	"github.com/spf13/cobra"
)

var (
	showRaw       bool
	showTodoStyle string
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <input_dir> <session-id>",
	Short: "Show one conversation as a transcript",
	Long: `Render the first conversation in input_dir whose session id contains
the given value. On a terminal the Markdown is pretty-printed unless --raw
is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		styleName := showTodoStyle
		if styleName == "" {
			styleName = cfg.TodoStyle
		}
		style, err := render.ParseTodoStyle(styleName)
		if err != nil {
			return err
		}

		doc, err := showDocument(args[0], args[1], render.Options{TodoStyle: style, TodoLimit: cfg.TodoLimit})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		pretty := !showRaw && internal.IsTerminal(out)
		return writeDocument(out, doc, pretty)
	},
}

// showDocument renders the first conversation whose id contains partial
func showDocument(inputDir, partial string, opts render.Options) (string, error) {
	set, err := internal.DiscoverSessions(inputDir)
	if err != nil {
		return "", err
	}

	bundles := set.Bundles(partial)
	if len(bundles) == 0 {
		return "", fmt.Errorf("no session matching %q in %s", partial, inputDir)
	}
	if len(bundles) > 1 {
		internal.LogInfo("%d sessions match %q, showing %s", len(bundles), partial, bundles[0].Main.SessionID)
	}

	return render.New(opts).Document(bundles[0]), nil
}

func writeDocument(w io.Writer, doc string, pretty bool) error {
	if pretty {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			styled, err := renderer.Render(doc)
			if err == nil {
				_, err = io.WriteString(w, styled)
				return err
			}
			internal.LogWarn("Failed to format transcript: %v", err)
		} else {
			internal.LogWarn("Failed to create renderer: %v", err)
		}
	}

	if _, err := fmt.Fprintln(w, doc); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print plain Markdown even on a terminal")
	showCmd.Flags().StringVar(&showTodoStyle, "todo-style", "", "TodoWrite rendering: summary or checklist (default from config)")
}
