package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cobra"

	"github.com/atlekbai/report_executor/internal/report"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Org         string
	Placeholder string
}

type compileOutput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config.json>",
		Short: "Print the SQL a report config compiles to",
		Long: `Validate a report config against the catalog and print the parameterized
SQL and its bind values. The database is never contacted. Use "-" to read
the config from stdin.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Org, "org", "", "organization id for tenant-scoped data sources")
	cmd.Flags().StringVar(&opts.Placeholder, "placeholder", "dollar", "bind variable style (dollar|question)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	placeholder, err := placeholderFormat(opts.Placeholder)
	if err != nil {
		return err
	}
	cat, err := opts.loadCatalog()
	if err != nil {
		return err
	}
	cfg, err := readConfig(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	exec := report.NewExecutor(cat, nil, report.WithTenant(opts.Org), report.WithPlaceholder(placeholder))
	sql, params, err := exec.Compile(cfg)
	if err != nil {
		return err
	}
	if params == nil {
		params = []any{}
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(compileOutput{SQL: sql, Params: params})
	}
	fmt.Fprintln(out, sql)
	for i, p := range params {
		fmt.Fprintf(out, "  $%d = %v\n", i+1, p)
	}
	return nil
}

func placeholderFormat(name string) (sq.PlaceholderFormat, error) {
	switch name {
	case "dollar":
		return sq.Dollar, nil
	case "question":
		return sq.Question, nil
	default:
		return nil, fmt.Errorf("invalid placeholder %q: must be dollar or question", name)
	}
}

func readConfig(path string, stdin io.Reader) (*report.ReportConfig, error) {
	if path == "-" {
		return report.ParseConfig(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ParseConfig(f)
}
