// =============================================================================
// csv2notion - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   csv2notion version
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/csv2notion/internal/config"
)

// Version and BuildDate are set at build time:
//
//	go build -ldflags "-X 'github.com/ginjaninja78/csv2notion/cmd.Version=1.0.0'"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "csv2notion")
		fmt.Fprintf(out, "Version:        %s\n", Version)
		fmt.Fprintf(out, "Build Date:     %s\n", BuildDate)
		fmt.Fprintf(out, "Notion Version: %s\n", config.DefaultNotionVersion)
		fmt.Fprintf(out, "Go Version:     %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
