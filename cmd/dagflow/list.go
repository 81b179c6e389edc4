package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListBlocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-blocks [name-suffix]",
		Short: "List registered block classes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary()
			if err != nil {
				return err
			}
			var suffix string
			if len(args) == 1 {
				suffix = args[0]
			}
			for _, info := range lib.ListBlocks(suffix) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Key, info.Doc)
			}
			return nil
		},
	}
	initCommonFlags(cmd, nil)
	return cmd
}

func newListDagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-dags [name-suffix]",
		Short: "List registered dag classes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary()
			if err != nil {
				return err
			}
			var suffix string
			if len(args) == 1 {
				suffix = args[0]
			}
			for _, info := range lib.ListDags(suffix) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", info.Key, info.Doc)
			}
			return nil
		},
	}
	initCommonFlags(cmd, nil)
	return cmd
}
