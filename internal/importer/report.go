package importer

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SummarySheet is the name of the first sheet of a report workbook.
const SummarySheet = "Summary"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// WriteReport writes an XLSX workbook describing an import run: a summary
// sheet with one line per file, then one sheet per parsed file listing the
// mapped value of every row. Dry runs use it to review what would be written.
func WriteReport(path string, results []Result) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, results, bold); err != nil {
		return err
	}

	used := map[string]bool{strings.ToLower(SummarySheet): true}
	for _, result := range results {
		if len(result.Columns) == 0 {
			continue
		}
		name := uniqueSheetName(result.TableName, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
		if err := writeRowsSheet(f, name, result, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// writeSummarySheet fills the summary sheet.
func writeSummarySheet(f *excelize.File, results []Result, headerStyle int) error {
	header := []interface{}{"File", "Table", "Profile", "Database ID", "Rows", "Created", "Missing values", "Status", "Error"}
	if err := writeRow(f, SummarySheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SummarySheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}

	for i, r := range results {
		status, message := "ok", ""
		if !r.Success {
			status = "failed"
		}
		if r.Error != nil {
			message = r.Error.Error()
		}
		row := []interface{}{
			r.FilePath,
			r.TableName,
			r.Profile,
			r.DatabaseID,
			r.Stats.RowsParsed,
			r.Stats.RecordsCreated,
			r.Stats.MissingValues,
			status,
			message,
		}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

// writeRowsSheet lists the mapped rows of one file.
func writeRowsSheet(f *excelize.File, sheet string, result Result, headerStyle int) error {
	header := make([]interface{}, 0, len(result.Columns)+2)
	header = append(header, "Row")
	for _, column := range result.Columns {
		header = append(header, column)
	}
	header = append(header, "Record ID")

	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet, err)
	}

	for i, r := range result.Rows {
		line := make([]interface{}, 0, len(header))
		line = append(line, i+1)
		for _, column := range result.Columns {
			line = append(line, r.Values[column])
		}
		line = append(line, r.RecordID)

		if err := writeRow(f, sheet, i+2, line); err != nil {
			return err
		}
	}
	return nil
}

// writeRow writes values starting at column A of the given 1-based row.
func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %q: %w", row, sheet, err)
	}
	return nil
}

// uniqueSheetName makes a valid sheet name from a table name, adding a
// numeric suffix when the name is taken. Sheet names are case-insensitive.
func uniqueSheetName(table string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, table)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Table"
	}

	name := truncateRunes(base, maxSheetName)
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}

	used[strings.ToLower(name)] = true
	return name
}

// truncateRunes shortens s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
