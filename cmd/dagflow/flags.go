package main

import "github.com/spf13/cobra"

// commandLineFlag describes one cobra flag this binary's subcommands
// register. Flags thread straight into config.Load's *pflag.FlagSet
// parameter rather than a package-global viper instance.
type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
}

var (
	configFlag = commandLineFlag{
		name:      "config",
		shorthand: "c",
		usage:     "config file (YAML)",
	}
	logFormatFlag = commandLineFlag{
		name:  "log_format",
		usage: "log format: text or json",
	}
)

// initCommonFlags registers every flag in addFlags on cmd, plus the
// config flag every subcommand accepts.
func initCommonFlags(cmd *cobra.Command, addFlags []commandLineFlag) {
	addFlags = append(addFlags, configFlag)
	for _, flag := range addFlags {
		cmd.Flags().StringP(flag.name, flag.shorthand, flag.defaultValue, flag.usage)
	}
}
