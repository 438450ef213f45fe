// =============================================================================
// csv2notion - File Manager Utility
// =============================================================================
//
// This module provides file utilities for the importer:
//   - Input discovery (files, directories and glob patterns)
//   - The plain-text processing summary written after a run
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles expands command-line arguments into the list of files
// to import.
//
// PARAMETERS:
//   - args: Paths as given on the command line. A directory contributes
//     its *.csv files, sorted by name. A glob pattern contributes every
//     matching regular file. Anything else is used as is, so that a missing
//     file is reported by the import rather than silently dropped.
//
// RETURNS:
//   - The file paths in argument order, without duplicates.
//   - An error if a directory cannot be read or a pattern is malformed.
func DiscoverInputFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			matches, err := csvFilesIn(arg)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				add(m)
			}

		case err != nil && hasGlobMeta(arg):
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				if isRegularFile(m) {
					add(m)
				}
			}

		default:
			add(arg)
		}
	}

	return files, nil
}

// csvFilesIn lists the *.csv files directly inside dir.
func csvFilesIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about an import run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	DryRun          bool
	ProjectPageID   string
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	SkippedFiles    int
	TotalRows       int
	RecordsCreated  int
	MissingValues   int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully imported file.
type ProcessedFileInfo struct {
	InputFile   string
	Table       string
	Profile     string
	DatabaseID  string
	Rows        int
	Created     int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file. It is created if
//     needed.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create summary directory: %w", err)
	}

	timestamp := summary.EndTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("import_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	mode := "import"
	if summary.DryRun {
		mode = "dry run"
	}

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "csv2notion - Import Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Mode:           %s\n"+
		"  Project Page:   %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:        %d\n"+
		"  Successful:         %d\n"+
		"  Failed:             %d\n"+
		"  Skipped:            %d\n"+
		"  Total Rows:         %d\n"+
		"  Records Created:    %d\n"+
		"  Missing Values:     %d\n\n",
		mode,
		summary.ProjectPageID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.SkippedFiles,
		summary.TotalRows,
		summary.RecordsCreated,
		summary.MissingValues)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Table:        %s (%s)\n", pf.Table, pf.Profile)
			if pf.DatabaseID != "" {
				fmt.Fprintf(writer, "  Database:     %s\n", pf.DatabaseID)
			}
			fmt.Fprintf(writer, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(writer, "  Created:      %d\n", pf.Created)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}
