package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mtaran/crdbextract/internal"
	"github.com/spf13/cobra"
)

var (
	catalogPath   string
	catalogLimit  int
	catalogFormat string
	catalogSchema bool
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List recent conversions",
	Long: `List the conversions recorded by 'crdbextract convert', newest first.

Every convert run gets its own run id, so all files written together can be
found again.

Examples:
  crdbextract catalog                 # Last 20 conversions
  crdbextract catalog --limit 0       # Everything
  crdbextract catalog --format json   # Machine readable
  crdbextract catalog --schema        # Show the catalog tables`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := catalogPath
		if path == "" {
			path = cfg.CatalogPath
		}

		db, err := internal.OpenDatabase(path)
		if err != nil {
			return fmt.Errorf("no catalog at %s: %w", path, err)
		}
		defer func() { _ = db.Close() }()

		out := cmd.OutOrStdout()
		if catalogSchema {
			return printSchema(out, db)
		}
		return printConversions(cmd.Context(), out, db, catalogLimit, catalogFormat)
	},
}

func printConversions(ctx context.Context, w io.Writer, db *sql.DB, limit int, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	convs, err := internal.ListConversions(ctx, db, limit)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		if convs == nil {
			convs = []internal.Conversion{}
		}
		data, err := json.MarshalIndent(convs, "", "  ")
		if err != nil {
			return &internal.ExportError{Format: "json", Err: err}
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q (text, json)", format)
	}

	if len(convs) == 0 {
		_, _ = fmt.Fprintln(w, internal.Header("No conversions recorded"))
		return nil
	}

	_, _ = fmt.Fprintln(w, internal.Header(fmt.Sprintf("%d conversion(s)", len(convs))))
	_, _ = fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join([]string{
		titleStyle.Render("Run"),
		titleStyle.Render("Session"),
		titleStyle.Render("Output"),
		titleStyle.Render("Format"),
		titleStyle.Render("Agents"),
		titleStyle.Render("Rendered"),
	}, "\t"))
	for _, c := range convs {
		_, _ = fmt.Fprintln(tw, strings.Join([]string{
			idStyle.Render(internal.ShortID(c.RunID)),
			internal.ShortID(c.SessionID),
			c.OutputPath,
			c.Format,
			countStyle.Render(strconv.Itoa(c.Agents)),
			dateStyle.Render(humanize.Time(c.RenderedAt)),
		}, "\t"))
	}
	return tw.Flush()
}

func printSchema(w io.Writer, db *sql.DB) error {
	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}
	if len(tables) == 0 {
		_, _ = fmt.Fprintln(w, "No tables found in database")
		return nil
	}

	for _, table := range tables {
		var rowCount int
		// table names come from sqlite_master
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&rowCount); err != nil {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		columns, err := getTableSchema(db, table)
		if err != nil {
			return fmt.Errorf("failed to get schema of %s: %w", table, err)
		}

		_, _ = fmt.Fprintf(w, "Table: %s (%d rows)\n", table, rowCount)
		for _, col := range columns {
			pk := ""
			if col.PrimaryKey {
				pk = " [PRIMARY KEY]"
			}
			notNull := ""
			if col.NotNull {
				notNull = " NOT NULL"
			}
			_, _ = fmt.Fprintf(w, "  • %s: %s%s%s\n", col.Name, col.Type, notNull, pk)
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func getTableSchema(db *sql.DB, tableName string) ([]ColumnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		var cid int
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVar(&catalogPath, "catalog", "", "Conversion catalog database (default from config)")
	catalogCmd.Flags().IntVarP(&catalogLimit, "limit", "n", 20, "Number of conversions to show (0 for all)")
	catalogCmd.Flags().StringVar(&catalogFormat, "format", "text", "Output format (text, json)")
	catalogCmd.Flags().BoolVar(&catalogSchema, "schema", false, "Show the catalog tables instead of conversions")
}
