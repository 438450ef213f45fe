package config

import (
	"fmt"
	"path/filepath"
)

// =============================================================================
// TABLE PROFILE STRUCTURE
// =============================================================================

// TableProfile describes the database created for one kind of CSV file.
type TableProfile struct {
	// Name identifies the profile in logs and on the command line.
	Name string `yaml:"name"`

	// FileMatchingPatterns is a list of glob patterns matched against the
	// input file's base name. The first profile with a matching pattern is
	// used.
	// Examples:
	//   - "*summary.csv"  : the per-project summary written by the auditor
	//   - "near_audit-*"  : per-detector result files
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Properties are the database columns, in the order they are created.
	// Exactly one must have type "title".
	Properties []Property `yaml:"properties"`
}

// Property types understood by the importer.
const (
	PropertyTitle    = "title"
	PropertyRichText = "rich_text"
	PropertySelect   = "select"
)

// Property is one database column and the rule that fills it.
type Property struct {
	// Name is the Notion property name.
	Name string `yaml:"name"`

	// Type is one of "title", "rich_text" or "select".
	// Default: "rich_text"
	Type string `yaml:"type"`

	// Column is the CSV header the value is read from.
	// Leave empty for columns that are created but filled by hand.
	Column string `yaml:"column,omitempty"`

	// Value is a constant used when Column is empty or missing from a row.
	Value string `yaml:"value,omitempty"`

	// LookupTable replaces a value with its mapped form. Values not in the
	// table are written unchanged.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`

	// Options are the choices created for a select property.
	Options []SelectOption `yaml:"options,omitempty"`
}

// SelectOption is one choice of a select property.
type SelectOption struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color,omitempty"`
}

// applyProfileDefaults sets default values for a profile.
func applyProfileDefaults(profile *TableProfile) {
	for i := range profile.Properties {
		if profile.Properties[i].Type == "" {
			profile.Properties[i].Type = PropertyRichText
		}
	}
}

// Validate checks property names and types.
func (p *TableProfile) Validate() error {
	if len(p.Properties) == 0 {
		return fmt.Errorf("no properties defined")
	}

	titles := 0
	names := make(map[string]bool)
	for _, prop := range p.Properties {
		if prop.Name == "" {
			return fmt.Errorf("property without a name")
		}
		if names[prop.Name] {
			return fmt.Errorf("property %q is defined twice", prop.Name)
		}
		names[prop.Name] = true

		switch prop.Type {
		case PropertyTitle:
			titles++
		case PropertyRichText, PropertySelect:
		default:
			return fmt.Errorf("property %q has unknown type %q", prop.Name, prop.Type)
		}
	}

	if titles != 1 {
		return fmt.Errorf("expected exactly one title property, found %d", titles)
	}

	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// Matches reports whether the profile applies to the given file.
func (p *TableProfile) Matches(filePath string) bool {
	fileName := filepath.Base(filePath)
	for _, pattern := range p.FileMatchingPatterns {
		if matched, err := filepath.Match(pattern, fileName); err == nil && matched {
			return true
		}
	}
	return false
}

// =============================================================================
// PROFILE SELECTION
// =============================================================================

// AllProfiles returns the configured profiles followed by the built-in ones.
// A configured profile hides the built-in profile of the same name.
func (c *MainConfig) AllProfiles() []TableProfile {
	all := make([]TableProfile, 0, len(c.Profiles)+2)
	all = append(all, c.Profiles...)

	configured := make(map[string]bool, len(c.Profiles))
	for _, p := range c.Profiles {
		configured[p.Name] = true
	}
	for _, p := range DefaultProfiles() {
		if !configured[p.Name] {
			all = append(all, p)
		}
	}

	return all
}

// Profile returns the profile with the given name.
func (c *MainConfig) Profile(name string) (*TableProfile, error) {
	for _, p := range c.AllProfiles() {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("no profile named %q", name)
}

// MatchProfile returns the first profile whose patterns match the file.
// Files no pattern matches use the "findings" profile.
func (c *MainConfig) MatchProfile(filePath string) (*TableProfile, error) {
	for _, p := range c.AllProfiles() {
		if p.Matches(filePath) {
			return &p, nil
		}
	}

	fallback, err := c.Profile(FindingsProfile)
	if err != nil {
		return nil, fmt.Errorf("no profile matches %s: %w", filepath.Base(filePath), err)
	}
	return fallback, nil
}

// =============================================================================
// BUILT-IN PROFILES
// =============================================================================

// Built-in profile names.
const (
	SummaryProfile  = "summary"
	FindingsProfile = "findings"
)

// Select values used by the built-in findings profile.
const (
	VisibilityPublic   = "❗️PUBLIC"
	VisibilityExternal = "❗️EXTERNAL"
	VisibilityPrivate  = "🔐PRIVATE"
	VisibilityInternal = "🔒INTERNAL"

	StatusWorking      = "🚧WORKING"
	StatusQuestionable = "❓QUESTIONABLE"
	StatusDone         = "✔️DONE"
	StatusIssue        = "❗ISSUE"
)

// DefaultProfiles returns the built-in profiles. Each call returns fresh
// values, so callers may modify them.
func DefaultProfiles() []TableProfile {
	return []TableProfile{
		{
			Name:                 SummaryProfile,
			FileMatchingPatterns: []string{"*summary.csv"},
			Properties: []Property{
				{Name: "File", Type: PropertyTitle, Column: "file"},
				{Name: "Name", Type: PropertyRichText, Column: "name"},
				{Name: "High", Type: PropertyRichText, Column: "high"},
				{Name: "Medium", Type: PropertyRichText, Column: "medium"},
				{Name: "Low", Type: PropertyRichText, Column: "low"},
				{Name: "Info", Type: PropertyRichText, Column: "info"},
			},
		},
		{
			Name: FindingsProfile,
			Properties: []Property{
				{Name: "Name", Type: PropertyTitle, Column: "name"},
				{
					Name:   "Visibility",
					Type:   PropertySelect,
					Column: "visibility",
					LookupTable: map[string]string{
						"public(near_bindgen)":   VisibilityPublic,
						"public":                 VisibilityPublic,
						"default":                VisibilityPublic,
						"external":               VisibilityExternal,
						"private(near_bindgen)":  VisibilityPrivate,
						"private":                VisibilityPrivate,
						"internal(near_bindgen)": VisibilityInternal,
						"internal":               VisibilityInternal,
					},
					Options: []SelectOption{
						{Name: VisibilityPublic, Color: "red"},
						{Name: VisibilityExternal, Color: "yellow"},
						{Name: VisibilityPrivate, Color: "blue"},
						{Name: VisibilityInternal, Color: "green"},
					},
				},
				{Name: "Type", Type: PropertyRichText, Column: "type"},
				{Name: "Macro", Type: PropertyRichText, Column: "macro"},
				{Name: "Modifiers", Type: PropertyRichText, Column: "modifier"},
				{Name: "Description", Type: PropertyRichText},
				{
					Name:  "Status",
					Type:  PropertySelect,
					Value: StatusWorking,
					Options: []SelectOption{
						{Name: StatusWorking, Color: "yellow"},
						{Name: StatusQuestionable, Color: "red"},
						{Name: StatusDone, Color: "green"},
						{Name: StatusIssue, Color: "red"},
					},
				},
				{Name: "High", Type: PropertyRichText, Column: "high"},
				{Name: "Medium", Type: PropertyRichText, Column: "medium"},
				{Name: "Low", Type: PropertyRichText, Column: "low"},
				{Name: "Info", Type: PropertyRichText, Column: "info"},
			},
		},
	}
}
