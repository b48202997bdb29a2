// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// classification reports and reactions.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/jimbo/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeReport converts a classification report into TOON format.
func EncodeReport(r *model.Report) string {
	var parts []string

	if r.File != "" {
		parts = append(parts, field("file", r.File))
	}
	res := &r.Result
	parts = append(parts,
		field("gist", res.Gist),
		fmt.Sprintf("lines: %d", res.LineCount),
		field("construct", res.ConstructType),
		field("complexity", string(res.Complexity)),
		fmt.Sprintf("score: %d", res.Score),
		formatList("actions", res.Actions),
	)

	if o := r.Outline; o != nil {
		parts = append(parts,
			field("language", o.Language),
			fmt.Sprintf("syntax_errors: %t", o.SyntaxErrors),
		)
		var rows [][]string
		for i := range o.Symbols {
			s := &o.Symbols[i]
			rows = append(rows, []string{encodeValue(s.Name), encodeValue(string(s.Kind)), strconv.Itoa(s.Line)})
		}
		parts = append(parts, formatTabular("symbols", []string{"name", "kind", "line"}, rows))
	}

	return strings.Join(parts, "\n")
}

// EncodeReaction converts a reaction into TOON format.
func EncodeReaction(r *model.Reaction) string {
	parts := []string{
		field("reaction", string(r.Kind)),
		field("id", r.ID),
		field("mood", string(r.Mood)),
		fmt.Sprintf("lines: %d", r.Lines),
		field("quote", r.Quote),
	}
	if r.Gist != "" {
		parts = append(parts, field("gist", r.Gist))
	}
	parts = append(parts, field("text", r.Text))
	return strings.Join(parts, "\n")
}

func field(name, value string) string {
	return name + ": " + encodeValue(value)
}

func formatList(name string, items []string) string {
	encoded := make([]string, len(items))
	for i, it := range items {
		encoded[i] = encodeValue(it)
	}
	if len(encoded) == 0 {
		return fmt.Sprintf("%s[0]:", name)
	}
	return fmt.Sprintf("%s[%d]: %s", name, len(items), strings.Join(encoded, ","))
}

// formatTabular writes rows whose cells are already encoded.
func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		fmt.Fprintf(&b, "\n  %s", strings.Join(row, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	// strings that look numeric must not decode as numbers
	if looksNumeric.MatchString(value) {
		return quote(value)
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
