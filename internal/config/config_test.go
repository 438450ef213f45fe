package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMainConfig_MissingOptionalFile(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, DefaultNotionVersion, cfg.NotionVersion)
	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, DefaultWriteDelay, cfg.WriteDelay)
	assert.Equal(t, DefaultEncoding, cfg.Encoding)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.Reverse())
}

func TestLoadMainConfig_MissingRequiredFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"), true)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadMainConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
page_id: 0123456789abcdef0123456789abcdef
project_title: Audit
write_delay: 1s
encoding: windows-1252
reverse_entries: false
log_level: debug
profiles:
  - name: detectors
    file_matching_patterns: ["near_audit-*.csv"]
    properties:
      - name: Function
        type: title
        column: name
      - name: File
        column: file
`)

	cfg, err := LoadMainConfig(path, true)
	require.NoError(t, err)

	assert.Equal(t, "Audit", cfg.ProjectTitle)
	assert.Equal(t, time.Second, cfg.WriteDelay)
	assert.Equal(t, "windows-1252", cfg.Encoding)
	assert.False(t, cfg.Reverse())
	assert.Equal(t, "debug", cfg.LogLevel)

	require.Len(t, cfg.Profiles, 1)
	assert.Equal(t, PropertyRichText, cfg.Profiles[0].Properties[1].Type, "type defaults to rich_text")
}

func TestLoadMainConfig_BadYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "profiles: [")
	_, err := LoadMainConfig(path, true)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestLoadMainConfig_ProfilesDir(t *testing.T) {
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles")
	require.NoError(t, os.Mkdir(profiles, 0o755))
	writeConfig(t, profiles, "gas.yaml", `
file_matching_patterns: ["*gas*.csv"]
properties:
  - name: Function
    type: title
    column: name
`)
	path := writeConfig(t, dir, "config.yaml", "profiles_dir: "+profiles+"\n")

	cfg, err := LoadMainConfig(path, true)
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 1)
	assert.Equal(t, "gas", cfg.Profiles[0].Name, "name taken from the file")
	profile, err := cfg.MatchProfile("near_audit-storage_gas.csv")
	require.NoError(t, err)
	assert.Equal(t, "gas", profile.Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     MainConfig
		wantErr string
	}{
		{
			name:    "negative delay",
			cfg:     MainConfig{WriteDelay: -time.Second},
			wantErr: "write_delay",
		},
		{
			name:    "profile without name",
			cfg:     MainConfig{Profiles: []TableProfile{{}}},
			wantErr: "has no name",
		},
		{
			name: "duplicate profile",
			cfg: MainConfig{Profiles: []TableProfile{
				{Name: "a", Properties: []Property{{Name: "T", Type: PropertyTitle}}},
				{Name: "a", Properties: []Property{{Name: "T", Type: PropertyTitle}}},
			}},
			wantErr: "defined twice",
		},
		{
			name: "no title",
			cfg: MainConfig{Profiles: []TableProfile{
				{Name: "a", Properties: []Property{{Name: "T", Type: PropertyRichText}}},
			}},
			wantErr: "exactly one title",
		},
		{
			name: "unknown type",
			cfg: MainConfig{Profiles: []TableProfile{
				{Name: "a", Properties: []Property{{Name: "T", Type: "number"}}},
			}},
			wantErr: "unknown type",
		},
		{
			name: "bad pattern",
			cfg: MainConfig{Profiles: []TableProfile{{
				Name:                 "a",
				FileMatchingPatterns: []string{"["},
				Properties:           []Property{{Name: "T", Type: PropertyTitle}},
			}}},
			wantErr: "bad file pattern",
		},
		{
			name:    "bad page id",
			cfg:     MainConfig{PageID: "not-a-page"},
			wantErr: "page_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.RequireCredentials(), "NOTION_KEY")

	cfg.NotionKey = "secret_x"
	assert.ErrorContains(t, cfg.RequireCredentials(), "PAGE_ID")

	cfg.PageID = "0123456789ABCDEF0123456789ABCDEF"
	require.NoError(t, cfg.RequireCredentials())
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", cfg.PageID)
}

func TestNormalizeID(t *testing.T) {
	id, err := NormalizeID("01234567-89ab-cdef-0123-456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", id)

	_, err = NormalizeID("xyz")
	assert.Error(t, err)
}

func TestDefaultProfilesAreValid(t *testing.T) {
	for _, p := range DefaultProfiles() {
		p := p
		applyProfileDefaults(&p)
		assert.NoError(t, p.Validate(), p.Name)
	}
}

func TestMatchProfile(t *testing.T) {
	cfg := Default()

	tests := map[string]string{
		"out/near_audit-summary.csv":        SummaryProfile,
		"summary.csv":                       SummaryProfile,
		"out/near_audit-promise_result.csv": FindingsProfile,
		"summary.txt":                       FindingsProfile,
	}

	for path, want := range tests {
		profile, err := cfg.MatchProfile(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, profile.Name, path)
	}
}

func TestAllProfiles_ConfiguredOverridesBuiltin(t *testing.T) {
	cfg := Default()
	cfg.Profiles = []TableProfile{{
		Name:       FindingsProfile,
		Properties: []Property{{Name: "Function", Type: PropertyTitle, Column: "name"}},
	}}

	all := cfg.AllProfiles()
	require.Len(t, all, 2)
	assert.Equal(t, FindingsProfile, all[0].Name)
	assert.Equal(t, SummaryProfile, all[1].Name)

	p, err := cfg.Profile(FindingsProfile)
	require.NoError(t, err)
	assert.Equal(t, "Function", p.Properties[0].Name)

	_, err = cfg.Profile("missing")
	assert.Error(t, err)

	fallback, err := cfg.MatchProfile("unmatched.csv")
	require.NoError(t, err)
	assert.Equal(t, "Function", fallback.Properties[0].Name, "fallback uses the configured findings profile")
}
