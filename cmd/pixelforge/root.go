package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pixelforge/internal/app"
	"github.com/phrazzld/pixelforge/internal/config"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/platform/logger"
	"github.com/spf13/cobra"
)

// newTransport creates the model transport. Tests replace it.
var newTransport = app.NewTransport

// cli holds the state shared by all subcommands.
type cli struct {
	configPath string
	logLevel   string

	config *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "pixelforge",
		Short: "Generate pixel-art images from text descriptions",
		Long: `pixelforge turns text descriptions into pixel-art SVG documents and raster
images using a configured generative model.

Configuration comes from pixelforge.{yaml,json,toml} and PIXELFORGE_*
environment variables, e.g. PIXELFORGE_LLM_API_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default: ./pixelforge.*)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		c.newGenerateCmd(),
		c.newBatchCmd(),
		c.newAddElementCmd(),
		c.newTypesCmd(),
	)
	return root
}

// load reads the configuration and sets up a logger on stderr so that
// stdout only carries command output.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Server.LogLevel = c.logLevel
	}
	level, ok := logger.ParseLevel(cfg.Server.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.Server.LogLevel)
	}

	c.config = cfg
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// components builds the generation stack for commands that call the model.
func (c *cli) components(ctx context.Context) (*app.Components, error) {
	transport, err := newTransport(ctx, c.config.LLM, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model transport: %w", err)
	}
	return app.Build(transport, c.config, c.logger)
}

// compositeFlag converts a tri-state flag into an Options value.
func compositeFlag(cmd *cobra.Command, value bool) *bool {
	if !cmd.Flags().Changed("composite") {
		return nil
	}
	return &value
}

func parseType(name string) (generation.GenerationType, error) {
	t, err := generation.ParseGenerationType(name)
	if err != nil {
		return "", fmt.Errorf("%w (see 'pixelforge types')", err)
	}
	return t, nil
}
