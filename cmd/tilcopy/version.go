package main

import (
	"github.com/spf13/cobra"

	"github.com/orizon-lang/til/internal/cli"
	"github.com/orizon-lang/til/internal/tilfile"
)

func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := cli.GetVersionInfo()
			info.FormatVersion = tilfile.FormatVersion
			return cli.PrintVersion(cmd.OutOrStdout(), toolName, info, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print version information as JSON")
	return cmd
}
