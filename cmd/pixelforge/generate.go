package main

import (
	"fmt"
	"time"

	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/spf13/cobra"
)

type generateFlags struct {
	accents    string
	typeName   string
	name       string
	outDir     string
	composite  bool
	useLibrary bool
	format     string
}

func (c *cli) newGenerateCmd() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate <description>",
		Short: "Generate one image",
		Long: `Generate one image from a description and write the SVG document and
the raster image to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.accents, "accents", "", "Extra style accents")
	cmd.Flags().StringVarP(&f.typeName, "type", "t", "", "Generation type (default plot_view)")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Base file name (default: timestamp)")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "Output directory (default: server.output_dir)")
	cmd.Flags().BoolVar(&f.composite, "composite", true, "Compose scenes from separately drawn elements")
	cmd.Flags().BoolVar(&f.useLibrary, "use-library", false, "Reuse library elements in composite scenes")
	cmd.Flags().StringVar(&f.format, "format", "", "Raster format: png or jpg")
	return cmd
}

func (c *cli) runGenerate(cmd *cobra.Command, description string, f generateFlags) error {
	t, err := parseType(f.typeName)
	if err != nil {
		return err
	}
	opts := generation.Options{
		Description:  description,
		Accents:      f.accents,
		Type:         t,
		Composite:    compositeFlag(cmd, f.composite),
		UseLibrary:   f.useLibrary,
		OutputFormat: f.format,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	name := f.name
	if name == "" {
		name = fmt.Sprintf("%s_%d", t, time.Now().UnixMilli())
	}
	outDir := f.outDir
	if outDir == "" {
		outDir = c.config.Server.OutputDir
	}

	components, err := c.components(cmd.Context())
	if err != nil {
		return err
	}

	result, err := components.Engine.GenerateCompleteImage(cmd.Context(), opts, outDir, name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "svg:    %s\n", result.SVGPath)
	fmt.Fprintf(out, "raster: %s\n", result.RasterPath)
	fmt.Fprintf(out, "size:   %dx%d composite=%t\n", result.Width, result.Height, result.Composite)
	return nil
}
