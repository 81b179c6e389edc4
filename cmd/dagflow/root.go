package main

import (
	"fmt"

	_ "github.com/dagflow/dagflow/internal/blocks"
	"github.com/dagflow/dagflow/internal/config"
	"github.com/dagflow/dagflow/internal/library"
	"github.com/dagflow/dagflow/internal/logger"
	"github.com/spf13/cobra"
)

// newRootCmd builds the dagflow command tree: list-blocks, list-dags,
// run, version.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dagflow",
		Short: "Inspect and run dataflow graphs",
	}
	root.AddCommand(newListBlocksCmd(), newListDagsCmd(), newRunCmd(), newVersionCmd())
	return root
}

// loadLibrary builds a Library with every registered provider's blocks
// and dags discovered (spec.md §4.4's collect_blocks/collect_dags).
func loadLibrary() (*library.Library, error) {
	lib := library.New()
	if err := lib.CollectBlocks("dagflow/blocks"); err != nil {
		return nil, fmt.Errorf("collecting blocks: %w", err)
	}
	if err := lib.CollectDags("dagflow/dags"); err != nil {
		return nil, fmt.Errorf("collecting dags: %w", err)
	}
	return lib, nil
}

// loadConfigAndLogger resolves a Config from cmd's flags and builds the
// Logger it describes.
func loadConfigAndLogger(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cmd.Flags(), configPath)
	if err != nil {
		return nil, nil, err
	}

	var opts []logger.Option
	if cfg.Debug {
		opts = append(opts, logger.WithDebug())
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.LogFormat))
	}
	return cfg, logger.NewLogger(opts...), nil
}
