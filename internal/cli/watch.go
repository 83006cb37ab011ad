package cli

import (
	"github.com/spf13/cobra"
)

// watchCmd is shorthand for `index --watch`.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Analyze the project and reanalyze on changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		watchFlag = true
		return runIndex(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
}
