package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtaran/crdbextract/internal"
	"github.com/mtaran/crdbextract/internal/indexeddb"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	idbChromePath     string
	idbProfile        string
	idbList           bool
	idbListProfiles   bool
	idbPath           string
	idbAll            bool
	idbOutput         string
	idbPretty         bool
	idbIncludeDeleted bool
	idbSafeCopy       bool
)

// indexedDBOptions is one invocation of the indexeddb command
type indexedDBOptions struct {
	ChromePath   string
	Profile      string
	List         bool
	ListProfiles bool
	Path         string
	All          bool
	Output       string
	Pretty       bool
	Extract      indexeddb.Options
	Jobs         int
}

// indexeddbCmd represents the indexeddb command
var indexeddbCmd = &cobra.Command{
	Use:   "indexeddb",
	Short: "Dump Chrome IndexedDB databases to JSON",
	Long: `Read Chrome IndexedDB LevelDB directories and write their records as JSON.

Examples:
  # List every IndexedDB database
  crdbextract indexeddb --list

  # Extract one origin
  crdbextract indexeddb --path ".../https_example.com_0.indexeddb.leveldb" --output data.json

  # Extract everything in one profile while Chrome is running
  crdbextract indexeddb --profile "Profile 1" --all --safe-copy --pretty`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		opts := indexedDBOptions{
			ChromePath:   idbChromePath,
			Profile:      idbProfile,
			List:         idbList,
			ListProfiles: idbListProfiles,
			Path:         idbPath,
			All:          idbAll,
			Output:       idbOutput,
			Pretty:       idbPretty,
			Extract:      indexeddb.Options{IncludeDeleted: idbIncludeDeleted, SafeCopy: idbSafeCopy},
			Jobs:         cfg.Jobs,
		}
		if opts.ChromePath == "" {
			opts.ChromePath = cfg.ChromeDir
		}
		if !opts.ListProfiles && !opts.List && opts.Path == "" && !opts.All {
			return cmd.Help()
		}

		return runIndexedDB(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
	},
}

func runIndexedDB(ctx context.Context, w, errW io.Writer, opts indexedDBOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.ListProfiles {
		return listProfiles(w, opts.ChromePath)
	}

	root := opts.ChromePath
	if opts.Profile != "" {
		root = filepath.Join(opts.ChromePath, opts.Profile)
		if !internal.IsDir(root) {
			return fmt.Errorf("profile %q not found at %s", opts.Profile, root)
		}
	}

	if opts.List {
		return listIndexedDBs(w, root)
	}

	var dirs []string
	if opts.Path != "" {
		dirs = []string{opts.Path}
	} else {
		found, err := indexeddb.FindDirs(root)
		if err != nil {
			return &internal.StorageError{Path: root, Op: "walk", Err: err}
		}
		dirs = found
	}

	results := make([]*indexeddb.Result, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	for i, dir := range dirs {
		i, dir := i, dir
		if opts.Path == "" {
			_, _ = fmt.Fprintf(errW, "Extracting: %s\n", filepath.Base(dir))
		}
		g.Go(func() error {
			results[i] = indexeddb.Extract(gctx, dir, opts.Extract)
			return nil
		})
	}
	_ = g.Wait()

	var data []byte
	var err error
	if opts.Pretty {
		data, err = json.MarshalIndent(results, "", "  ")
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return &internal.ExportError{Format: "json", Path: opts.Output, Err: err}
	}

	if opts.Output == "" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		return &internal.ExportError{Format: "json", Path: opts.Output, Err: err}
	}
	_, _ = fmt.Fprintf(errW, "Wrote %d database(s) to %s\n", len(results), opts.Output)
	return nil
}

func listProfiles(w io.Writer, chromePath string) error {
	profiles, err := indexeddb.Profiles(chromePath)
	if err != nil {
		return &internal.StorageError{Path: chromePath, Op: "readdir", Err: err}
	}
	_, _ = fmt.Fprintf(w, "Chrome profiles in: %s\n", chromePath)
	for _, p := range profiles {
		_, _ = fmt.Fprintf(w, "  %s: %d IndexedDB origins\n", p.Name, p.IndexedDBCount())
	}
	return nil
}

func listIndexedDBs(w io.Writer, root string) error {
	dirs, err := indexeddb.FindDirs(root)
	if err != nil {
		return &internal.StorageError{Path: root, Op: "walk", Err: err}
	}

	_, _ = fmt.Fprintf(w, "Scanning: %s\n\n", root)
	for _, dir := range dirs {
		var names []string
		infos, err := indexeddb.ListDatabases(dir)
		if err != nil {
			names = []string{fmt.Sprintf("Error: %v", err)}
		}
		for _, info := range infos {
			names = append(names, info.Name)
		}

		_, _ = fmt.Fprintf(w, "[%s] %s\n", indexeddb.ProfileName(dir), indexeddb.Origin(dir))
		_, _ = fmt.Fprintf(w, "  Path: %s\n", dir)
		_, _ = fmt.Fprintf(w, "  Databases (%d): %s\n\n", len(infos), strings.Join(names, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(indexeddbCmd)
	f := indexeddbCmd.Flags()
	f.StringVar(&idbChromePath, "chrome-path", "", "Chrome user data directory (default per OS)")
	f.StringVar(&idbProfile, "profile", "", "Chrome profile to use (Default, Profile 1, ...)")
	f.BoolVarP(&idbList, "list", "l", false, "List IndexedDB databases")
	f.BoolVar(&idbListProfiles, "list-profiles", false, "List Chrome profiles")
	f.StringVarP(&idbPath, "path", "p", "", "Extract one IndexedDB LevelDB directory")
	f.BoolVarP(&idbAll, "all", "a", false, "Extract every IndexedDB directory")
	f.StringVarP(&idbOutput, "output", "o", "", "Output JSON file (stdout if not given)")
	f.BoolVar(&idbPretty, "pretty", false, "Indent JSON output")
	f.BoolVar(&idbIncludeDeleted, "include-deleted", false, "Mark the state of each record")
	f.BoolVar(&idbSafeCopy, "safe-copy", false, "Read a temporary copy to avoid Chrome's lock")
}
