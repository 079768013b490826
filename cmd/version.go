package cmd

import (
	"fmt"
	"runtime"

	"github.com/fbz-tec/crudx/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crudx %s (commit %s, built %s, %s/%s)\n",
				version.AppVersion, version.GitCommit, version.BuildTime, runtime.GOOS, runtime.GOARCH)
		},
	}
}
