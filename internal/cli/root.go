package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/atlekbai/report_executor/internal/catalog"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Catalog string // catalog YAML path, empty for the built-in catalog
	Format  string // "json" | "text"
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for reportctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reportctl",
		Short: "Compile and run ad-hoc reports",
		Long:  "reportctl validates report configs against the data source catalog, prints the SQL they compile to, and runs them.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "catalog YAML file (default: built-in catalog)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSourcesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

func (o *RootOptions) loadCatalog() (*catalog.Catalog, error) {
	if o.Catalog == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(o.Catalog)
}
