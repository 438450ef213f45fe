// =============================================================================
// csv2notion - CSV Parser Module
// =============================================================================
//
// This module reads the CSV files written by the audit tooling and turns
// them into records keyed by header name.
//
// FILE LAYOUT:
//   - Line 1 is the header row. It is split on every comma, without quote
//     handling, and each name is trimmed like a field.
//   - Every following line except the last is a data row, split by
//     SplitLine. The last line is always treated as the trailing empty line
//     the tooling writes and is skipped.
//   - Lines end with "\r\n" or "\n".
//
// ENCODING:
//   Files are decoded to UTF-8 before splitting. Any name known to the WHATWG
//   encoding index is accepted ("utf-8", "windows-1252", "shift_jis", ...).
//   A byte order mark always wins over the configured encoding.
//
// =============================================================================

package csvparser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// DATA STRUCTURES
// =============================================================================

// Record maps header names to field values for one data row.
// A header whose position is past the end of the row has no entry.
type Record map[string]string

// Get returns the value for a header and whether the row had a field for it.
func (r Record) Get(header string) (string, bool) {
	value, ok := r[header]
	return value, ok
}

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Name is the file's base name without its extension.
	// It is used as the title of the database the records go into.
	Name string

	// SourceFile is the path the data was read from.
	SourceFile string

	// Headers contains the column headers in file order.
	Headers []string

	// Records contains one entry per data row, in file order.
	Records []Record
}

// Settings controls how a file is read.
type Settings struct {
	// Encoding is the character encoding of the file.
	// Default: "UTF-8"
	Encoding string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its records.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Decoding settings.
//
// RETURNS:
//   - The parsed data.
//   - An error if the file cannot be read or decoded. No partial data is
//     returned in that case.
func Parse(filePath string, settings Settings) (*CSVData, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	content, err := decode(raw, settings.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}

	headers, records := ParseContent(content)

	return &CSVData{
		Name:       TableName(filePath),
		SourceFile: filePath,
		Headers:    headers,
		Records:    records,
	}, nil
}

// ParseContent splits already-decoded file content into headers and records.
func ParseContent(content string) ([]string, []Record) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	headers := ParseHeaders(lines[0])

	records := make([]Record, 0, len(lines))
	for i := 1; i < len(lines)-1; i++ {
		records = append(records, BuildRecord(headers, SplitLine(lines[i])))
	}

	return headers, records
}

// ParseHeaders splits the header line on every comma and trims each name.
// Quoted header names containing commas are not supported.
func ParseHeaders(line string) []string {
	names := strings.Split(line, ",")
	for i, name := range names {
		names[i] = TrimField(name)
	}
	return names
}

// BuildRecord pairs each header with the field at the same position.
// Headers beyond the last field are left out of the record and fields beyond
// the last header are ignored. When a header name repeats, the later column
// wins.
func BuildRecord(headers, fields []string) Record {
	record := make(Record, len(headers))
	for i, header := range headers {
		if i >= len(fields) {
			break
		}
		record[header] = fields[i]
	}
	return record
}

// TableName derives a database title from a file path: the last path
// segment, with either separator style, minus its extension.
func TableName(filePath string) string {
	name := filePath
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// DECODING
// =============================================================================

// decode converts raw file bytes to a UTF-8 string.
func decode(raw []byte, encodingName string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return "", err
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), raw)
	if err != nil {
		return "", err
	}

	return string(decoded), nil
}

// lookupEncoding resolves an encoding label. An empty label means UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return unicode.UTF8, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}
