package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "auditctl",
		Short: "Run security scans and print the scored report",
		Long: `auditctl runs the dependency, code and image scanners in-process,
scores their findings and prints the resulting report.`,
		SilenceUsage: true,
	}
	root.AddCommand(newScanCmd(), newVersionCmd())
	return root
}
