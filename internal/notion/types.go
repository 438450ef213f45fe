package notion

import (
	"unicode/utf8"
)

// MaxTextLength is the longest content Notion accepts in one text object.
const MaxTextLength = 2000

// RichText is a text object.
type RichText struct {
	Type string `json:"type"`
	Text Text   `json:"text"`
}

// Text holds the content of a RichText object.
type Text struct {
	Content string `json:"content"`
}

// PlainText converts a string into rich text, splitting it into objects of
// at most MaxTextLength characters. An empty string gives one empty object.
func PlainText(s string) []RichText {
	var out []RichText
	for {
		chunk := s
		if utf8.RuneCountInString(s) > MaxTextLength {
			cut := 0
			for i := 0; i < MaxTextLength; i++ {
				_, size := utf8.DecodeRuneInString(s[cut:])
				cut += size
			}
			chunk = s[:cut]
		}
		out = append(out, RichText{Type: "text", Text: Text{Content: chunk}})
		s = s[len(chunk):]
		if s == "" {
			return out
		}
	}
}

// =============================================================================
// PROPERTY VALUES
// =============================================================================

// Properties are the property values of a page, keyed by property name.
type Properties map[string]PropertyValue

// PropertyValue is the value of one page property. Exactly one field is set.
type PropertyValue struct {
	Title    []RichText    `json:"title,omitempty"`
	RichText []RichText    `json:"rich_text,omitempty"`
	Select   *SelectOption `json:"select,omitempty"`
}

// TitleValue builds a title property value.
func TitleValue(s string) PropertyValue {
	return PropertyValue{Title: PlainText(s)}
}

// RichTextValue builds a rich text property value.
func RichTextValue(s string) PropertyValue {
	return PropertyValue{RichText: PlainText(s)}
}

// SelectValue builds a select property value.
func SelectValue(name string) PropertyValue {
	return PropertyValue{Select: &SelectOption{Name: name}}
}

// SelectOption names a select choice. Color is only used in schemas.
type SelectOption struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// =============================================================================
// DATABASE SCHEMA
// =============================================================================

// Schema is the set of properties of a database, keyed by property name.
type Schema map[string]PropertySchema

// PropertySchema declares one database property. Exactly one field is set.
type PropertySchema struct {
	Title    *struct{}     `json:"title,omitempty"`
	RichText *struct{}     `json:"rich_text,omitempty"`
	Select   *SelectSchema `json:"select,omitempty"`
}

// SelectSchema lists the choices of a select property.
type SelectSchema struct {
	Options []SelectOption `json:"options"`
}

// TitleColumn declares the title property.
func TitleColumn() PropertySchema {
	return PropertySchema{Title: &struct{}{}}
}

// RichTextColumn declares a rich text property.
func RichTextColumn() PropertySchema {
	return PropertySchema{RichText: &struct{}{}}
}

// SelectColumn declares a select property with the given choices.
func SelectColumn(options ...SelectOption) PropertySchema {
	if options == nil {
		options = []SelectOption{}
	}
	return PropertySchema{Select: &SelectSchema{Options: options}}
}

// =============================================================================
// REQUESTS
// =============================================================================

// Parent points at the page or database an object is created in.
type Parent struct {
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
}

type createPageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

type createDatabaseRequest struct {
	Parent     Parent     `json:"parent"`
	Title      []RichText `json:"title"`
	Properties Schema     `json:"properties"`
}

// object is the part of every response the client reads.
type object struct {
	Object string `json:"object"`
	ID     string `json:"id"`
}
