package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/redact"
	"github.com/spf13/cobra"
)

// batchReport is the JSON summary printed by the batch command.
type batchReport struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []batchReportItem `json:"items"`
}

type batchReportItem struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	SVGPath    string `json:"svgPath,omitempty"`
	RasterPath string `json:"rasterPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (c *cli) newBatchCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "batch <file.json>",
		Short: "Generate every item of a batch file in parallel",
		Long: `Generate every item of a batch file in parallel. The file holds a JSON
array of {"name": ..., "options": {...}} objects. One item's failure does
not stop the others; a JSON report is printed when all have settled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd, args[0], outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: server.output_dir)")
	return cmd
}

func (c *cli) runBatch(cmd *cobra.Command, path, outDir string) error {
	items, err := readBatchFile(path)
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = c.config.Server.OutputDir
	}

	components, err := c.components(cmd.Context())
	if err != nil {
		return err
	}

	results := components.Engine.Batch(cmd.Context(), items, outDir)

	report := batchReport{Total: len(results), Items: make([]batchReportItem, 0, len(results))}
	for _, r := range results {
		item := batchReportItem{Name: r.Name, OK: r.Err == nil}
		if r.Err != nil {
			report.Failed++
			item.Error = redact.Error(r.Err)
		} else {
			report.Succeeded++
			item.SVGPath = r.Result.SVGPath
			item.RasterPath = r.Result.RasterPath
		}
		report.Items = append(report.Items, item)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", report.Failed, report.Total)
	}
	return nil
}

// readBatchFile parses and checks a batch file. Names must be unique and
// non-empty because they become file names.
func readBatchFile(path string) ([]generation.BatchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	var items []generation.BatchItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch file %s has no items", path)
	}

	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.Name == "" {
			return nil, fmt.Errorf("batch item %d has no name", i)
		}
		if seen[item.Name] {
			return nil, fmt.Errorf("batch item name %q is used twice", item.Name)
		}
		seen[item.Name] = true
		if err := item.Options.Validate(); err != nil {
			return nil, fmt.Errorf("batch item %q: %w", item.Name, err)
		}
	}
	return items, nil
}
