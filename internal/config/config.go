// =============================================================================
// csv2notion - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the importer
// configuration.
//
// CONFIGURATION SOURCES (highest precedence first):
//   1. Command-line flags
//   2. Environment variables (NOTION_KEY, PAGE_ID, CSV2NOTION_*), optionally
//      loaded from a .env file
//   3. The YAML configuration file (config.yaml)
//   4. Built-in defaults
//
//   Flags and environment are merged by the cmd package. This module owns
//   the YAML file, the defaults and validation.
//
// TABLE PROFILES:
//   A profile describes the Notion database created for a CSV file: which
//   files it applies to, and how each database property is filled from the
//   CSV columns. Two profiles are built in, "summary" and "findings".
//   Profiles from the config file, or from files in profiles_dir, are tried
//   before the built-in ones.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// NOTION SETTINGS
	// =========================================================================

	// NotionKey is the integration token used to call the Notion API.
	// Usually supplied through the NOTION_KEY environment variable.
	NotionKey string `yaml:"notion_key"`

	// PageID is the root page under which the project page is created.
	// Usually supplied through the PAGE_ID environment variable.
	PageID string `yaml:"page_id"`

	// ProjectTitle is the title of the project page. Empty creates an
	// untitled page.
	ProjectTitle string `yaml:"project_title"`

	// NotionVersion is sent as the Notion-Version header.
	// Default: "2022-06-28"
	NotionVersion string `yaml:"notion_version"`

	// APIBaseURL is the Notion REST endpoint.
	// Default: "https://api.notion.com/v1"
	APIBaseURL string `yaml:"api_base_url"`

	// =========================================================================
	// IMPORT SETTINGS
	// =========================================================================

	// WriteDelay is the pause between two record writes.
	// Default: 500ms
	WriteDelay time.Duration `yaml:"write_delay"`

	// Encoding is the character encoding of the input files.
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// ReverseEntries writes the rows of a file last-to-first so the database
	// lists them in file order.
	// Default: true
	ReverseEntries *bool `yaml:"reverse_entries"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROFILES
	// =========================================================================

	// ProfilesDir is an optional directory of profile YAML files.
	ProfilesDir string `yaml:"profiles_dir"`

	// Profiles lists additional table profiles.
	Profiles []TableProfile `yaml:"profiles"`
}

// Defaults.
const (
	DefaultNotionVersion = "2022-06-28"
	DefaultAPIBaseURL    = "https://api.notion.com/v1"
	DefaultWriteDelay    = 500 * time.Millisecond
	DefaultEncoding      = "UTF-8"
	DefaultLogLevel      = "info"
)

// Reverse reports whether rows are written last-to-first.
func (c *MainConfig) Reverse() bool {
	return c.ReverseEntries == nil || *c.ReverseEntries
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration holding only the built-in defaults.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//   - required: When false, a missing file yields the defaults instead of
//     an error. Set it when the user named the file explicitly.
//
// RETURNS:
//   - The loaded configuration, with defaults applied and profiles from
//     ProfilesDir merged in.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string, required bool) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if config.ProfilesDir != "" {
		extra, err := LoadProfiles(config.ProfilesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		config.Profiles = append(config.Profiles, extra...)
	}

	applyMainConfigDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.NotionVersion == "" {
		config.NotionVersion = DefaultNotionVersion
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}
	if config.WriteDelay == 0 {
		config.WriteDelay = DefaultWriteDelay
	}
	if config.Encoding == "" {
		config.Encoding = DefaultEncoding
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	for i := range config.Profiles {
		applyProfileDefaults(&config.Profiles[i])
	}
}

// Validate checks the configuration for errors that would only surface
// half-way through an import.
func (c *MainConfig) Validate() error {
	if c.WriteDelay < 0 {
		return fmt.Errorf("write_delay must not be negative")
	}

	seen := make(map[string]bool)
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if p.Name == "" {
			return fmt.Errorf("profile #%d has no name", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("profile %q is defined twice", p.Name)
		}
		seen[p.Name] = true

		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}

	if c.PageID != "" {
		if _, err := NormalizeID(c.PageID); err != nil {
			return fmt.Errorf("page_id: %w", err)
		}
	}

	return nil
}

// RequireCredentials checks that everything needed to talk to Notion is
// present and normalizes the page ID.
func (c *MainConfig) RequireCredentials() error {
	if c.NotionKey == "" {
		return fmt.Errorf("no Notion key provided (set NOTION_KEY)")
	}
	if c.PageID == "" {
		return fmt.Errorf("no page ID provided (set PAGE_ID)")
	}

	id, err := NormalizeID(c.PageID)
	if err != nil {
		return fmt.Errorf("page ID: %w", err)
	}
	c.PageID = id

	return nil
}

// NormalizeID accepts a Notion ID with or without dashes and returns the
// dashed form.
func NormalizeID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%q is not a valid Notion ID: %w", id, err)
	}
	return parsed.String(), nil
}

// LoadProfiles loads every profile file in a directory.
//
// PARAMETERS:
//   - profilesDir: The directory holding *.yaml / *.yml profile files.
//
// RETURNS:
//   - The profiles, *.yaml files first, each group ordered by file name.
//   - An error if any file cannot be read or parsed.
func LoadProfiles(profilesDir string) ([]TableProfile, error) {
	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	profiles := make([]TableProfile, 0, len(files))
	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, *profile)
	}

	return profiles, nil
}

// loadProfile loads a single profile file. A profile without a name is
// named after its file.
func loadProfile(filePath string) (*TableProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile TableProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.Name == "" {
		base := filepath.Base(filePath)
		profile.Name = base[:len(base)-len(filepath.Ext(base))]
	}

	return &profile, nil
}
