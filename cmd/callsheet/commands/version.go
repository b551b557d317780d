package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/callsheet/display"
	"github.com/teranos/callsheet/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show callsheet version information",
		Long:  `Display version, build time, commit hash, and platform information for the callsheet binary.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if display.ShouldOutputJSON(cmd) {
				return display.WriteJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, info.String())
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
			return nil
		},
	}
}
