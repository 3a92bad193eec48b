package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/atlekbai/report_executor/internal/db"
	"github.com/atlekbai/report_executor/internal/export"
	"github.com/atlekbai/report_executor/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Org         string
	DatabaseURL string // postgres connection string
	SQLite      string // sqlite database file
	Export      string // csv | xlsx, empty prints the result
	Output      string
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.json>",
		Short: "Execute a report config",
		Long: `Execute a report config against PostgreSQL (--database-url) or a SQLite
file (--db) and print the result envelope, or export the rows with --export.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Org, "org", "", "organization id for tenant-scoped data sources")
	cmd.Flags().StringVar(&opts.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	cmd.Flags().StringVar(&opts.SQLite, "db", "", "SQLite database file")
	cmd.Flags().StringVar(&opts.Export, "export", "", "export format (csv|xlsx)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "export file path (default: stdout)")
	cmd.MarkFlagsMutuallyExclusive("database-url", "db")

	return cmd
}

func runReport(opts *RunOptions, path string, cmd *cobra.Command) error {
	cat, err := opts.loadCatalog()
	if err != nil {
		return err
	}
	cfg, err := readConfig(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var (
		querier     report.Querier
		placeholder sq.PlaceholderFormat = sq.Dollar
	)
	switch {
	case opts.SQLite != "":
		conn, err := sql.Open("sqlite3", opts.SQLite)
		if err != nil {
			return err
		}
		defer conn.Close()
		querier = db.NewSQLQuerier(conn)
		placeholder = sq.Question
	case opts.DatabaseURL != "":
		pool, err := db.NewPool(cmd.Context(), opts.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		querier = db.NewPoolQuerier(pool)
	default:
		return errors.New("one of --database-url or --db is required")
	}

	exec := report.NewExecutor(cat, querier, report.WithTenant(opts.Org), report.WithPlaceholder(placeholder))
	res := exec.Execute(cmd.Context(), cfg)
	if !res.Success {
		return fmt.Errorf("%s: %s", res.Kind, res.Error)
	}

	if opts.Export != "" {
		return writeExport(opts, res, cmd.OutOrStdout())
	}
	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeText(cmd.OutOrStdout(), res)
}

func writeExport(opts *RunOptions, res *report.Result, stdout io.Writer) error {
	format, err := export.ParseFormat(opts.Export)
	if err != nil {
		return err
	}
	w := stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, format, res.Columns, res.Data)
}

func writeText(w io.Writer, res *report.Result) error {
	if err := export.WriteCSV(w, res.Columns, res.Data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows, %d ms)\n", res.RowCount, res.ExecutionTimeMs)
	return err
}
