// =============================================================================
// csv2notion - Import Command
// =============================================================================
//
// This file defines the 'import' command, which uploads CSV files to Notion.
//
// COMMAND USAGE:
//   csv2notion import [files or directories...] [flags]
//
// FLAGS:
//   --page-id        : Page the project page is created under (or PAGE_ID)
//   --project-title  : Title of the project page
//   --delay          : Pause between two record writes
//   --dry-run        : Parse and map the files without calling Notion
//   --report         : Write an XLSX report of the run
//   --profile        : Use this table profile for every file
//
// PROCESSING PIPELINE:
//   1. Load configuration and resolve the input files
//   2. Create the project page
//   3. For each file, in order:
//      a. Parse the CSV file
//      b. Select the table profile
//      c. Create the database
//      d. Write the rows, one at a time
//   4. Write the report and the summary log
//
// Files are imported one after another; a failed file does not stop the
// others, but makes the command exit with an error.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/csv2notion/internal/config"
	"github.com/ginjaninja78/csv2notion/internal/importer"
	"github.com/ginjaninja78/csv2notion/internal/notion"
	"github.com/ginjaninja78/csv2notion/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	notionKey    string
	pageID       string
	projectTitle string
	writeDelay   time.Duration
	dryRun       bool
	reportPath   string
	profileName  string
)

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import [files or directories...]",
	Short: "Import CSV files into Notion databases",
	Long: `The import command creates a project page under PAGE_ID and one
database per CSV file inside it. Each row becomes one database record.

Directories are scanned for *.csv files. Glob patterns are expanded.

The table profile of a file is chosen by its name: *summary.csv files use
the "summary" profile, everything else the "findings" profile, unless a
configured profile matches first or --profile forces one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&notionKey, "notion-key", "",
		"Notion integration token (prefer NOTION_KEY)")
	importCmd.Flags().StringVar(&pageID, "page-id", "",
		"ID of the page the project page is created under")
	importCmd.Flags().StringVar(&projectTitle, "project-title", "",
		"Title of the project page")
	importCmd.Flags().DurationVar(&writeDelay, "delay", config.DefaultWriteDelay,
		"Pause between two record writes")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Parse and map the files without calling Notion")
	importCmd.Flags().StringVar(&reportPath, "report", "",
		"Write an XLSX report of the run to this file")
	importCmd.Flags().StringVar(&profileName, "profile", "",
		"Use this table profile for every file")

	_ = importCmd.Flags().MarkHidden("notion-key")

	rootCmd.AddCommand(importCmd)
}

// =============================================================================
// IMPORT PIPELINE
// =============================================================================

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// =========================================================================
	// STEP 1: CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyImportFlags(cmd, cfg)

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	files, err := utils.DiscoverInputFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no CSV files found in %v", args)
	}

	var store importer.Store
	if !dryRun {
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}
		store = notion.NewClient(cfg.NotionKey,
			notion.WithBaseURL(cfg.APIBaseURL),
			notion.WithVersion(cfg.NotionVersion))
	}

	imp := importer.New(store, cfg, importer.Options{
		DryRun:  dryRun,
		Profile: profileName,
		Logger:  log,
	})

	// =========================================================================
	// STEP 2: PROJECT PAGE
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  time.Now(),
		DryRun:     dryRun,
		TotalFiles: len(files),
	}

	projectID, err := imp.CreateProject(ctx)
	if err != nil {
		return err
	}
	summary.ProjectPageID = projectID

	// =========================================================================
	// STEP 3: FILES
	// =========================================================================

	results := make([]importer.Result, 0, len(files))
	for _, file := range files {
		if ctx.Err() != nil {
			log.Info("Interrupted, skipping remaining files", "remaining", len(files)-len(results))
			break
		}

		result := imp.Run(ctx, projectID, file)
		results = append(results, result)
		printResult(out, result)
		addToSummary(&summary, result)
	}
	finishSummary(&summary)

	// =========================================================================
	// STEP 4: REPORTS
	// =========================================================================

	if reportPath != "" {
		if err := importer.WriteReport(reportPath, results); err != nil {
			return err
		}
		logPath, err := utils.WriteSummaryLog(summary, filepath.Dir(reportPath))
		if err != nil {
			return err
		}
		log.Info("Wrote report", "report", reportPath, "summary", logPath)
	}

	printTotals(out, summary)

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d files failed", summary.FailedFiles, summary.TotalFiles)
	}
	if summary.SkippedFiles > 0 {
		return fmt.Errorf("interrupted, %d of %d files skipped: %w",
			summary.SkippedFiles, summary.TotalFiles, context.Cause(ctx))
	}
	return nil
}

// applyImportFlags copies the flags that were given, on the command line or
// through the environment, over the configuration file values.
func applyImportFlags(cmd *cobra.Command, cfg *config.MainConfig) {
	if notionKey != "" {
		cfg.NotionKey = notionKey
	}
	if pageID != "" {
		cfg.PageID = pageID
	}
	if projectTitle != "" {
		cfg.ProjectTitle = projectTitle
	}
	if cmd.Flags().Changed("delay") || v.IsSet("delay") {
		cfg.WriteDelay = writeDelay
	}
}

// addToSummary records one file's outcome.
func addToSummary(summary *utils.ProcessingSummary, result importer.Result) {
	summary.TotalRows += result.Stats.RowsParsed
	summary.RecordsCreated += result.Stats.RecordsCreated
	summary.MissingValues += result.Stats.MissingValues

	if !result.Success {
		message := "unknown error"
		if result.Error != nil {
			message = result.Error.Error()
		}
		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: message,
		})
		return
	}

	summary.SuccessfulFiles++
	summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
		InputFile:   result.FilePath,
		Table:       result.TableName,
		Profile:     result.Profile,
		DatabaseID:  result.DatabaseID,
		Rows:        result.Stats.RowsParsed,
		Created:     result.Stats.RecordsCreated,
		ProcessTime: result.Stats.ProcessingTime,
	})
}

// finishSummary stamps the end time and counts the files never started.
func finishSummary(summary *utils.ProcessingSummary) {
	summary.SkippedFiles = summary.TotalFiles - summary.SuccessfulFiles - summary.FailedFiles
	summary.EndTime = time.Now()
}

// =============================================================================
// CONSOLE OUTPUT
// =============================================================================

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

// printResult prints one line per file.
func printResult(w io.Writer, result importer.Result) {
	if !result.Success {
		fmt.Fprintf(w, "%s %s: %v\n", failMark("✗"), result.FilePath, result.Error)
		return
	}
	fmt.Fprintf(w, "%s %s -> %s [%s] %d/%d rows (%s)\n",
		okMark("✓"), result.FilePath, bold(result.TableName), result.Profile,
		result.Stats.RecordsCreated, result.Stats.RowsParsed,
		result.Stats.ProcessingTime.Round(time.Millisecond))
}

// printTotals prints the closing summary.
func printTotals(w io.Writer, summary utils.ProcessingSummary) {
	status := okMark("done")
	switch {
	case summary.FailedFiles > 0:
		status = failMark("done with errors")
	case summary.SkippedFiles > 0:
		status = failMark("interrupted")
	}
	fmt.Fprintf(w, "\n%s: %d files, %d succeeded, %d failed, %d skipped, %d rows, %d records created in %s\n",
		status, summary.TotalFiles, summary.SuccessfulFiles, summary.FailedFiles, summary.SkippedFiles,
		summary.TotalRows, summary.RecordsCreated,
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
}
