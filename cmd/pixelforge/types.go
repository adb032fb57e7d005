package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/phrazzld/pixelforge/internal/app"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/spf13/cobra"
)

func (c *cli) newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the generation types and their canvas sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := app.Catalog(c.config)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tMODE\tSIZE\tCOMPOSITE")
			for _, t := range generation.GenerationTypes() {
				spec, err := catalog.Spec(t)
				if err != nil {
					return err
				}
				name := string(t)
				if t == generation.DefaultGenerationType {
					name += " (default)"
				}
				fmt.Fprintf(w, "%s\t%s\t%dx%d\t%t\n", name, spec.Mode, spec.Width, spec.Height, spec.Composite)
			}
			return w.Flush()
		},
	}
}
