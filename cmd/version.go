package cmd

import (
	"runtime"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Commit and Date are set by the linker
	Commit = "unknown"
	Date   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logger.Infof("wayshm %s", Version)
		logger.Infof("commit: %s", Commit)
		logger.Infof("built: %s", Date)
		logger.Infof("go: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
