package commands

import (
	"fmt"
	"runtime"

	"github.com/DOIDFoundation/validator-rpc/version"
	"github.com/spf13/cobra"
)

func init() {
	VersionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show build details")
}

// VersionCmd ...
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Version:", version.VersionWithMeta)
		if !verbose {
			return
		}
		if version.Commit != "" {
			fmt.Println("Git Commit:", version.Commit)
		}
		if version.Date != "" {
			fmt.Println("Git Commit Date:", version.Date)
		}
		fmt.Println("Architecture:", runtime.GOARCH)
		fmt.Println("Go Version:", runtime.Version())
		fmt.Println("Operating System:", runtime.GOOS)
	},
}
