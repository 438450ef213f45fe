// =============================================================================
// csv2notion - Importer Module
// =============================================================================
//
// This module uploads parsed CSV files to Notion. It orchestrates the import
// of a single file, from CSV parsing to the last record write.
//
// IMPORT PIPELINE:
//   1. Create the project page (once per run)
//   2. Parse the input CSV file
//   3. Select the table profile for the file
//   4. Create a database titled after the file, using the profile schema
//   5. Map every row to property values
//   6. Write the rows, pausing a fixed delay between writes
//
// CONCURRENCY:
//   Files are imported one after another. The write pacing is shared by all
//   files of a run, so the delay also applies across file boundaries.
//
// =============================================================================

package importer

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/ginjaninja78/csv2notion/internal/config"
	"github.com/ginjaninja78/csv2notion/internal/csvparser"
	"github.com/ginjaninja78/csv2notion/internal/logging"
	"github.com/ginjaninja78/csv2notion/internal/notion"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the document database the records are written to.
// *notion.Client implements it.
type Store interface {
	CreatePage(ctx context.Context, parentPageID, title string) (string, error)
	CreateDatabase(ctx context.Context, parentPageID, title string, schema notion.Schema) (string, error)
	CreateRecord(ctx context.Context, databaseID string, properties notion.Properties) (string, error)
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of importing a single file.
type Result struct {
	// FilePath is the path to the input file.
	FilePath string

	// TableName is the title of the database created for the file.
	TableName string

	// Profile is the name of the table profile used.
	Profile string

	// DatabaseID is the ID of the created database.
	// Empty on dry runs and when database creation failed.
	DatabaseID string

	// Success indicates whether every row was written.
	Success bool

	// Error contains the error if the import failed.
	Error error

	// Columns are the profile's property names, in schema order.
	Columns []string

	// Rows holds the mapped value of every row, in file order.
	Rows []Row

	// Stats contains import statistics.
	Stats Stats
}

// Row is one mapped CSV row.
type Row struct {
	// Values maps property names to the written values.
	// Properties with no value are absent.
	Values map[string]string

	// RecordID is the ID of the created page. Empty until written.
	RecordID string
}

// Stats contains statistics about one file's import.
type Stats struct {
	// RowsParsed is the number of data rows read from the file.
	RowsParsed int

	// RecordsCreated is the number of rows written to the database.
	RecordsCreated int

	// MissingValues counts properties left out because the row had no
	// value for their column.
	MissingValues int

	// ProcessingTime is the time taken to import the file.
	ProcessingTime time.Duration
}

// =============================================================================
// IMPORTER STRUCTURE
// =============================================================================

// Options tune an Importer.
type Options struct {
	// DryRun parses and maps the files without calling the store.
	DryRun bool

	// Profile forces a table profile for every file. Empty selects the
	// profile from the file name.
	Profile string

	// Logger receives progress messages. The zero value discards them.
	Logger logr.Logger
}

// Importer uploads CSV files to a Store.
type Importer struct {
	store   Store
	cfg     *config.MainConfig
	opts    Options
	log     logr.Logger
	limiter *rate.Limiter
}

// New creates an Importer. The store may be nil for dry runs.
func New(store Store, cfg *config.MainConfig, opts Options) *Importer {
	return &Importer{
		store:   store,
		cfg:     cfg,
		opts:    opts,
		log:     opts.Logger,
		limiter: newLimiter(cfg.WriteDelay),
	}
}

// newLimiter allows one write per delay, the first one immediately.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// CreateProject creates the page all databases of the run are placed under.
// Dry runs return an empty ID.
func (im *Importer) CreateProject(ctx context.Context) (string, error) {
	if im.opts.DryRun {
		return "", nil
	}

	im.log.Info("Creating project page", "root", im.cfg.PageID, "title", im.cfg.ProjectTitle)
	id, err := im.store.CreatePage(ctx, im.cfg.PageID, im.cfg.ProjectTitle)
	if err != nil {
		return "", fmt.Errorf("failed to create project page: %w", err)
	}
	im.log.Info("Created project page", "pageID", id)

	return id, nil
}

// Run imports one file into a new database under the project page.
//
// PROCESSING STEPS:
//  1. Parse the CSV file
//  2. Select the table profile
//  3. Map rows to property values
//  4. Create the database
//  5. Write the rows, last row first unless reverse_entries is off
func (im *Importer) Run(ctx context.Context, projectID, csvPath string) (result Result) {
	startTime := time.Now()
	result.FilePath = csvPath
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	im.log.Info("Processing file", "file", csvPath)

	// =========================================================================
	// STEP 1: PARSE INPUT CSV
	// =========================================================================

	data, err := csvparser.Parse(csvPath, csvparser.Settings{Encoding: im.cfg.Encoding})
	if err != nil {
		result.Error = fmt.Errorf("failed to parse CSV: %w", err)
		return result
	}

	result.TableName = data.Name
	result.Stats.RowsParsed = len(data.Records)
	im.log.V(logging.Debug).Info("Parsed CSV", "table", data.Name, "headers", data.Headers, "rows", len(data.Records))

	// =========================================================================
	// STEP 2: SELECT PROFILE
	// =========================================================================

	profile, err := im.selectProfile(csvPath)
	if err != nil {
		result.Error = err
		return result
	}
	result.Profile = profile.Name
	result.Columns = PropertyNames(profile)

	// =========================================================================
	// STEP 3: MAP ROWS
	// =========================================================================

	properties := make([]notion.Properties, len(data.Records))
	result.Rows = make([]Row, len(data.Records))
	for i, record := range data.Records {
		mapped := MapRecord(profile, record)
		properties[i] = mapped.Properties
		result.Rows[i] = Row{Values: mapped.Values}
		result.Stats.MissingValues += len(mapped.Missing)
		if len(mapped.Missing) > 0 {
			im.log.V(logging.Debug).Info("Row has missing columns", "row", i+1, "columns", mapped.Missing)
		}
	}

	if im.opts.DryRun {
		im.log.Info("Dry run, nothing written", "table", data.Name, "profile", profile.Name, "rows", len(data.Records))
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 4: CREATE DATABASE
	// =========================================================================

	databaseID, err := im.store.CreateDatabase(ctx, projectID, data.Name, BuildSchema(profile))
	if err != nil {
		result.Error = fmt.Errorf("failed to create database %q: %w", data.Name, err)
		return result
	}
	result.DatabaseID = databaseID
	im.log.Info("Created database", "table", data.Name, "databaseID", databaseID, "profile", profile.Name)

	// =========================================================================
	// STEP 5: WRITE ROWS
	// =========================================================================

	for _, i := range im.writeOrder(len(data.Records)) {
		if err := im.limiter.Wait(ctx); err != nil {
			result.Error = fmt.Errorf("interrupted after %d of %d rows: %w",
				result.Stats.RecordsCreated, len(data.Records), err)
			return result
		}

		id, err := im.store.CreateRecord(ctx, databaseID, properties[i])
		if err != nil {
			result.Error = fmt.Errorf("failed to write row %d: %w", i+1, err)
			return result
		}

		result.Rows[i].RecordID = id
		result.Stats.RecordsCreated++
		im.log.Info("Wrote row", "table", data.Name, "row", i+1, "title", titleOf(profile, result.Rows[i]))
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// selectProfile returns the forced profile or the one matching the file.
func (im *Importer) selectProfile(csvPath string) (*config.TableProfile, error) {
	if im.opts.Profile != "" {
		profile, err := im.cfg.Profile(im.opts.Profile)
		if err != nil {
			return nil, fmt.Errorf("failed to select profile: %w", err)
		}
		return profile, nil
	}
	profile, err := im.cfg.MatchProfile(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}
	return profile, nil
}

// writeOrder returns the row indexes in the order they are written.
func (im *Importer) writeOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if im.cfg.Reverse() {
		slices.Reverse(order)
	}
	return order
}

// titleOf returns the row's title value for log messages.
func titleOf(profile *config.TableProfile, row Row) string {
	for _, prop := range profile.Properties {
		if prop.Type == config.PropertyTitle {
			return row.Values[prop.Name]
		}
	}
	return ""
}
