package main

import (
	"fmt"

	"github.com/phrazzld/pixelforge/internal/library"
	"github.com/spf13/cobra"
)

func (c *cli) newAddElementCmd() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "add-element <description>",
		Short: "Generate an element and add it to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := c.components(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := components.Elements.Add(cmd.Context(), library.AddRequest{
				Description: args[0],
				Width:       width,
				Height:      height,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s, %dx%d) to %s\n",
				entry.ID, entry.Type, entry.Width, entry.Height, components.Library.Dir())
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", library.DefaultElementSize, "Element width in pixels (64-1024)")
	cmd.Flags().IntVar(&height, "height", library.DefaultElementSize, "Element height in pixels (64-1024)")
	return cmd
}
