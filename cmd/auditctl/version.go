package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"secaudit/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the auditctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "auditctl %s (%s)\n", app.Version, runtime.Version())
		},
	}
}
