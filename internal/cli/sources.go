package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "sources",
		Short:        "List the data sources and fields in the catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := rootOpts.loadCatalog()
			if err != nil {
				return err
			}
			sources := cat.Describe()

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sources)
			}
			for _, src := range sources {
				fmt.Fprintf(out, "%s (%s)\n", src.ID, src.Title)
				for _, f := range src.Fields {
					fmt.Fprintf(out, "  %-24s %s\n", f.ID, f.Type)
				}
				if len(src.Joinable) > 0 {
					fmt.Fprintf(out, "  joins: %s\n", strings.Join(src.Joinable, ", "))
				}
			}
			return nil
		},
	}
}
