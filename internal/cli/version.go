package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/martijn/harvestd/internal/cli.Version=..."
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the harvestd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("harvestd", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
