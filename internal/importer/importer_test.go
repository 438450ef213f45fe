package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/csv2notion/internal/config"
	"github.com/ginjaninja78/csv2notion/internal/csvparser"
	"github.com/ginjaninja78/csv2notion/internal/notion"
)

// fakeStore records every call and hands out sequential IDs.
type fakeStore struct {
	pages     []string
	databases []fakeDatabase
	records   []fakeRecord

	failDatabase error
	failRecordAt int
}

type fakeDatabase struct {
	Parent string
	Title  string
	Schema notion.Schema
}

type fakeRecord struct {
	DatabaseID string
	Properties notion.Properties
}

func (s *fakeStore) CreatePage(_ context.Context, parent, title string) (string, error) {
	s.pages = append(s.pages, parent+"/"+title)
	return fmt.Sprintf("page-%d", len(s.pages)), nil
}

func (s *fakeStore) CreateDatabase(_ context.Context, parent, title string, schema notion.Schema) (string, error) {
	if s.failDatabase != nil {
		return "", s.failDatabase
	}
	s.databases = append(s.databases, fakeDatabase{Parent: parent, Title: title, Schema: schema})
	return fmt.Sprintf("db-%d", len(s.databases)), nil
}

func (s *fakeStore) CreateRecord(_ context.Context, databaseID string, props notion.Properties) (string, error) {
	if s.failRecordAt > 0 && len(s.records)+1 == s.failRecordAt {
		return "", errors.New("rate limited")
	}
	s.records = append(s.records, fakeRecord{DatabaseID: databaseID, Properties: props})
	return fmt.Sprintf("row-%d", len(s.records)), nil
}

func testConfig() *config.MainConfig {
	cfg := config.Default()
	cfg.WriteDelay = 0
	cfg.PageID = "root"
	return cfg
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func titleText(p notion.PropertyValue) string {
	if len(p.Title) == 0 {
		return ""
	}
	return p.Title[0].Text.Content
}

const findingsCSV = "name,visibility,type,macro,modifier,high,medium,low,info\n" +
	"ft_transfer,public,fn,near_bindgen,payable,\"reentrancy, unchecked\",,,\n" +
	"on_callback,private,fn,,,,,,\n"

func TestRun_Findings(t *testing.T) {
	store := &fakeStore{}
	path := writeCSV(t, t.TempDir(), "near_audit-reentrancy.csv", findingsCSV)

	im := New(store, testConfig(), Options{})
	project, err := im.CreateProject(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "page-1", project)
	assert.Equal(t, []string{"root/"}, store.pages)

	result := im.Run(context.Background(), project, path)
	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "near_audit-reentrancy", result.TableName)
	assert.Equal(t, config.FindingsProfile, result.Profile)
	assert.Equal(t, "db-1", result.DatabaseID)
	assert.Equal(t, 2, result.Stats.RowsParsed)
	assert.Equal(t, 2, result.Stats.RecordsCreated)

	require.Len(t, store.databases, 1)
	db := store.databases[0]
	assert.Equal(t, "page-1", db.Parent)
	assert.Equal(t, "near_audit-reentrancy", db.Title)
	assert.NotNil(t, db.Schema["Name"].Title)
	assert.NotNil(t, db.Schema["Description"].RichText)
	require.NotNil(t, db.Schema["Status"].Select)
	assert.Len(t, db.Schema["Status"].Select.Options, 4)

	// Rows are written last-to-first.
	require.Len(t, store.records, 2)
	assert.Equal(t, "on_callback", titleText(store.records[0].Properties["Name"]))
	assert.Equal(t, "ft_transfer", titleText(store.records[1].Properties["Name"]))

	first := store.records[1].Properties
	assert.Equal(t, config.VisibilityPublic, first["Visibility"].Select.Name)
	assert.Equal(t, config.StatusWorking, first["Status"].Select.Name)
	assert.Equal(t, "reentrancy, unchecked", first["High"].RichText[0].Text.Content)
	assert.NotContains(t, first, "Description")

	second := store.records[0].Properties
	assert.Equal(t, config.VisibilityPrivate, second["Visibility"].Select.Name)

	// Record IDs are kept against the file order.
	assert.Equal(t, "row-2", result.Rows[0].RecordID)
	assert.Equal(t, "row-1", result.Rows[1].RecordID)
}

func TestRun_KeepOrder(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig()
	keep := false
	cfg.ReverseEntries = &keep
	path := writeCSV(t, t.TempDir(), "x.csv", findingsCSV)

	result := New(store, cfg, Options{}).Run(context.Background(), "p", path)
	require.True(t, result.Success)
	assert.Equal(t, "ft_transfer", titleText(store.records[0].Properties["Name"]))
}

func TestRun_SummaryProfile(t *testing.T) {
	store := &fakeStore{}
	path := writeCSV(t, t.TempDir(), "near_audit-summary.csv",
		"file,name,high,medium,low,info\nsrc/lib.rs,ft_transfer,1,0,2,3\n")

	result := New(store, testConfig(), Options{}).Run(context.Background(), "p", path)
	require.True(t, result.Success, "%v", result.Error)
	assert.Equal(t, config.SummaryProfile, result.Profile)
	assert.Equal(t, []string{"File", "Name", "High", "Medium", "Low", "Info"}, result.Columns)

	require.Len(t, store.records, 1)
	assert.Equal(t, "src/lib.rs", titleText(store.records[0].Properties["File"]))
}

func TestRun_ForcedProfile(t *testing.T) {
	store := &fakeStore{}
	path := writeCSV(t, t.TempDir(), "totals.csv", "file,name\na.rs,f\n")

	result := New(store, testConfig(), Options{Profile: config.SummaryProfile}).Run(context.Background(), "p", path)
	require.True(t, result.Success)
	assert.Equal(t, config.SummaryProfile, result.Profile)

	result = New(store, testConfig(), Options{Profile: "nope"}).Run(context.Background(), "p", path)
	assert.False(t, result.Success)
	assert.ErrorContains(t, result.Error, "nope")
}

func TestRun_DryRun(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "x.csv", findingsCSV)

	im := New(nil, testConfig(), Options{DryRun: true})
	project, err := im.CreateProject(context.Background())
	require.NoError(t, err)
	assert.Empty(t, project)

	result := im.Run(context.Background(), project, path)
	require.True(t, result.Success)
	assert.Empty(t, result.DatabaseID)
	assert.Equal(t, 0, result.Stats.RecordsCreated)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, config.VisibilityPublic, result.Rows[0].Values["Visibility"])
}

func TestRun_MissingFile(t *testing.T) {
	store := &fakeStore{}
	result := New(store, testConfig(), Options{}).Run(context.Background(), "p", filepath.Join(t.TempDir(), "gone.csv"))

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, os.ErrNotExist)
	assert.Empty(t, store.databases)
}

func TestRun_DatabaseFailure(t *testing.T) {
	store := &fakeStore{failDatabase: errors.New("unauthorized")}
	path := writeCSV(t, t.TempDir(), "x.csv", findingsCSV)

	result := New(store, testConfig(), Options{}).Run(context.Background(), "p", path)
	assert.False(t, result.Success)
	assert.ErrorContains(t, result.Error, "unauthorized")
	assert.Empty(t, store.records)
}

func TestRun_RecordFailureStopsFile(t *testing.T) {
	store := &fakeStore{failRecordAt: 2}
	path := writeCSV(t, t.TempDir(), "x.csv", findingsCSV)

	result := New(store, testConfig(), Options{}).Run(context.Background(), "p", path)
	assert.False(t, result.Success)
	assert.ErrorContains(t, result.Error, "failed to write row 1")
	assert.Equal(t, 1, result.Stats.RecordsCreated)
	assert.Positive(t, result.Stats.ProcessingTime)
}

func TestRun_CanceledContext(t *testing.T) {
	store := &fakeStore{}
	cfg := testConfig()
	cfg.WriteDelay = config.DefaultWriteDelay
	path := writeCSV(t, t.TempDir(), "x.csv", findingsCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(store, cfg, Options{}).Run(ctx, "p", path)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestMapRecord(t *testing.T) {
	profile := &config.TableProfile{
		Name: "t",
		Properties: []config.Property{
			{Name: "Name", Type: config.PropertyTitle, Column: "name"},
			{Name: "Kind", Type: config.PropertySelect, Column: "kind", LookupTable: map[string]string{"fn": "Function"}},
			{Name: "Level", Type: config.PropertySelect, Column: "level"},
			{Name: "Note", Type: config.PropertyRichText, Column: "note", Value: "n/a"},
			{Name: "Extra", Type: config.PropertyRichText, Column: "extra"},
			{Name: "Blank", Type: config.PropertyRichText},
		},
	}

	mapped := MapRecord(profile, csvparser.Record{"name": "f", "kind": "fn", "level": ""})

	assert.Equal(t, map[string]string{"Name": "f", "Kind": "Function", "Note": "n/a"}, mapped.Values)
	assert.Equal(t, []string{"extra"}, mapped.Missing)
	assert.Equal(t, "Function", mapped.Properties["Kind"].Select.Name)
	assert.NotContains(t, mapped.Properties, "Level", "empty select is left out")
	assert.NotContains(t, mapped.Properties, "Blank")

	mapped = MapRecord(profile, csvparser.Record{"name": "g", "kind": "struct"})
	assert.Equal(t, "struct", mapped.Values["Kind"], "unknown lookup keys are kept")
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "near_audit-promise_result.csv", findingsCSV)

	results := []Result{
		New(nil, testConfig(), Options{DryRun: true}).Run(context.Background(), "", path),
		{FilePath: "missing.csv", TableName: "missing", Error: errors.New("failed to parse CSV")},
	}

	report := filepath.Join(dir, "report.xlsx")
	require.NoError(t, WriteReport(report, results))

	f, err := excelize.OpenFile(report)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, "near_audit-promise_result"}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, "File", summary[0][0])
	assert.Equal(t, "ok", summary[1][7])
	assert.Equal(t, "failed", summary[2][7])
	assert.Equal(t, "failed to parse CSV", summary[2][8])

	rows, err := f.GetRows("near_audit-promise_result")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Row", rows[0][0])
	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, "ft_transfer", rows[1][1])
	assert.Equal(t, config.VisibilityPublic, rows[1][2])
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"summary": true}

	assert.Equal(t, "Summary (2)", uniqueSheetName("Summary", used))
	assert.Equal(t, "a_b_c", uniqueSheetName("a/b:c", used))
	assert.Equal(t, "Table", uniqueSheetName("''", used))

	long := "near_audit-unclaimed_storage_fee_detector"
	first := uniqueSheetName(long, used)
	second := uniqueSheetName(long, used)
	assert.Len(t, first, maxSheetName)
	assert.Len(t, second, maxSheetName)
	assert.NotEqual(t, first, second)
}
