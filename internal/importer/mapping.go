package importer

import (
	"github.com/ginjaninja78/csv2notion/internal/config"
	"github.com/ginjaninja78/csv2notion/internal/csvparser"
	"github.com/ginjaninja78/csv2notion/internal/notion"
)

// =============================================================================
// SCHEMA
// =============================================================================

// BuildSchema declares one database property per profile property.
func BuildSchema(profile *config.TableProfile) notion.Schema {
	schema := make(notion.Schema, len(profile.Properties))
	for _, prop := range profile.Properties {
		switch prop.Type {
		case config.PropertyTitle:
			schema[prop.Name] = notion.TitleColumn()
		case config.PropertySelect:
			options := make([]notion.SelectOption, len(prop.Options))
			for i, opt := range prop.Options {
				options[i] = notion.SelectOption{Name: opt.Name, Color: opt.Color}
			}
			schema[prop.Name] = notion.SelectColumn(options...)
		default:
			schema[prop.Name] = notion.RichTextColumn()
		}
	}
	return schema
}

// PropertyNames returns the profile's property names in schema order.
func PropertyNames(profile *config.TableProfile) []string {
	names := make([]string, len(profile.Properties))
	for i, prop := range profile.Properties {
		names[i] = prop.Name
	}
	return names
}

// =============================================================================
// RECORD MAPPING
// =============================================================================

// MappedRecord is a CSV record translated to database property values.
type MappedRecord struct {
	// Properties is the request payload for the record.
	Properties notion.Properties

	// Values holds the same values as plain strings, for reports and logs.
	Values map[string]string

	// Missing lists the CSV columns the record had no field for.
	Missing []string
}

// MapRecord fills the profile's properties from one CSV record.
//
// VALUE RESOLUTION:
//  1. The record's field for the property's column, when present
//  2. Otherwise the property's static value, when set
//  3. The lookup table then replaces the value if it has an entry for it
//
// A property that resolves to nothing is left out of the record rather than
// written empty. An empty select value is also left out, since Notion
// rejects an option without a name.
func MapRecord(profile *config.TableProfile, record csvparser.Record) MappedRecord {
	mapped := MappedRecord{
		Properties: make(notion.Properties, len(profile.Properties)),
		Values:     make(map[string]string, len(profile.Properties)),
	}

	for _, prop := range profile.Properties {
		value, ok := resolveValue(prop, record)
		if !ok {
			if prop.Column != "" {
				mapped.Missing = append(mapped.Missing, prop.Column)
			}
			continue
		}

		switch prop.Type {
		case config.PropertyTitle:
			mapped.Properties[prop.Name] = notion.TitleValue(value)
		case config.PropertySelect:
			if value == "" {
				continue
			}
			mapped.Properties[prop.Name] = notion.SelectValue(value)
		default:
			mapped.Properties[prop.Name] = notion.RichTextValue(value)
		}
		mapped.Values[prop.Name] = value
	}

	return mapped
}

// resolveValue returns the value a property takes for a record and whether
// it has one.
func resolveValue(prop config.Property, record csvparser.Record) (string, bool) {
	var value string
	var ok bool

	if prop.Column != "" {
		value, ok = record.Get(prop.Column)
	}
	if !ok && prop.Value != "" {
		value, ok = prop.Value, true
	}
	if !ok {
		return "", false
	}

	// Values not in the table are kept as they are.
	if replacement, exists := prop.LookupTable[value]; exists {
		value = replacement
	}

	return value, true
}
