package main

import (
	"fmt"

	"github.com/dagflow/dagflow/internal/build"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the binary version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", build.AppName, build.Version)
			return err
		},
	}
	initCommonFlags(cmd, nil)
	return cmd
}
