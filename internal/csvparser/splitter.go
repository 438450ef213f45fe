// =============================================================================
// csv2notion - Line Splitter
// =============================================================================
//
// The audit tooling that produces our CSV files does not write RFC-4180 CSV.
// Fields are wrapped in double quotes when they contain commas, and a quote
// that belongs to the value is written as \" instead of being doubled. The
// standard encoding/csv reader rejects or mangles those lines, so each line is
// split by hand here.
//
// SPLITTING RULES:
//   - A double quote toggles between the unquoted and quoted states and is
//     dropped from the output.
//   - A double quote preceded by a backslash in the raw line is a literal
//     quote: it is kept and does not change the state.
//   - A comma in the unquoted state ends the current field.
//   - Backslashes never reach the output.
//   - Each field is trimmed of whitespace and of one layer of matching
//     single or double quotes.
//
// LIMITATIONS:
//   - No multi-line fields and no "" quote doubling.
//   - Unbalanced quotes change the grouping for the rest of the line.
//   - A literal '@' splits the field it appears in (see Sentinel).
//
// =============================================================================

package csvparser

import (
	"strings"
)

// Sentinel is written in place of every field-separating comma before the
// buffer is split into fields. Input containing it is split at that point.
const Sentinel = '@'

// splitState is the state of the quote automaton.
type splitState int

const (
	unquoted splitState = iota
	quoted
)

// toggle flips between the two states.
func (s splitState) toggle() splitState {
	if s == unquoted {
		return quoted
	}
	return unquoted
}

// =============================================================================
// SPLITTING
// =============================================================================

// SplitLine splits a single line (without its terminator) into trimmed field
// tokens. It never fails: an empty line yields one empty token.
//
// EXAMPLES:
//
//	1,"a,b",3          -> ["1", "a,b", "3"]
//	"hello", ' x '     -> ["hello", "x"]
//	say \"hi\",2       -> [`say "hi"`, "2"]
func SplitLine(line string) []string {
	raw := strings.Split(scanLine(line), string(Sentinel))

	fields := make([]string, len(raw))
	for i, token := range raw {
		fields[i] = TrimField(token)
	}
	return fields
}

// scanLine runs the quote automaton over the line and returns the buffer
// with field separators replaced by the Sentinel.
//
// The files this tool reads were historically parsed by removing the first
// backslash from the output buffer after every character. The buffer never
// holds a backslash when a character is appended, so that removal always
// drops the backslash just written. Skipping backslashes outright gives the
// same output without rescanning the buffer.
func scanLine(line string) string {
	var buf strings.Builder
	buf.Grow(len(line))

	state := unquoted
	var prev rune
	for i, ch := range line {
		// The escape lookback is against the raw line, not the buffer.
		escaped := i > 0 && prev == '\\'
		prev = ch

		switch {
		case ch == '"' && escaped:
			buf.WriteRune(ch)
		case ch == '"':
			state = state.toggle()
		case ch == ',' && state == unquoted:
			buf.WriteRune(Sentinel)
		case ch == '\\':
			// dropped
		default:
			buf.WriteRune(ch)
		}
	}

	return buf.String()
}

// =============================================================================
// TRIMMING
// =============================================================================

// TrimField removes surrounding whitespace and one layer of matching single
// or double quotes from a token. Whitespace inside the quotes is trimmed too.
func TrimField(token string) string {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return token
	}

	first, last := token[0], token[len(token)-1]
	if first == last && (first == '"' || first == '\'') {
		token = strings.TrimSpace(token[1 : len(token)-1])
	}

	return token
}
