// =============================================================================
// csv2notion - Main Entry Point
// =============================================================================
//
// USAGE:
//   csv2notion import    - Import CSV files into Notion databases
//   csv2notion parse     - Print the records parsed from a CSV file
//   csv2notion version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Parsing, configuration, the Notion client and the
//                      importer
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/csv2notion/cmd"
)

func main() {
	cmd.Execute()
}
