// Package parser turns bracket tokens such as "[Tone: formal, casual]" inside
// template text into form field definitions.
package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dpshade/pocket-forms/internal/models"
)

// tokenPattern matches "[label]" or "[label: options]". The label may not
// contain ':' or ']' and the options may not contain ']'.
var tokenPattern = regexp.MustCompile(`\[([^:\]]+)(?::\s*([^\]]*))?\]`)

var colorPattern = regexp.MustCompile(`^#[A-Fa-f0-9]{6}$`)

// DefaultOptions is used for tokens that declare no options
var DefaultOptions = []string{"Option 1", "Option 2", "Option 3"}

// Parse extracts one FieldDefinition per token in document order.
// Start and End are byte offsets of the whole token within text.
func Parse(text string) []models.FieldDefinition {
	matches := tokenPattern.FindAllStringSubmatchIndex(text, -1)
	fields := make([]models.FieldDefinition, 0, len(matches))

	for _, m := range matches {
		label := strings.TrimSpace(text[m[2]:m[3]])
		raw := ""
		if m[4] >= 0 {
			raw = text[m[4]:m[5]]
		}

		fields = append(fields, models.FieldDefinition{
			Name:    NormalizeName(label),
			Label:   label,
			Options: parseOptions(raw),
			Start:   m[0],
			End:     m[1],
		})
	}

	return fields
}

// NormalizeName lowercases a label and replaces whitespace runs with '_'
func NormalizeName(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

func parseOptions(raw string) []string {
	var options []string
	for _, opt := range splitOutsideParens(raw) {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}

	if len(options) == 0 {
		return append([]string(nil), DefaultOptions...)
	}

	if isColorList(options) {
		for i, opt := range options {
			options[i] = stripSpace(opt)
		}
	}

	return options
}

// splitOutsideParens splits on commas that are not inside parentheses.
// A comma is considered inside when a ')' follows it before any '('.
func splitOutsideParens(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && !closesBeforeOpen(s[i+1:]) {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func closesBeforeOpen(rest string) bool {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			return false
		case ')':
			return true
		}
	}
	return false
}

// OptionColors returns the colors an option shows as swatches: one for a
// #RRGGBB option, several for a whitespace separated palette, none otherwise.
func OptionColors(option string) []string {
	if c := stripSpace(option); colorPattern.MatchString(c) {
		return []string{c}
	}
	parts := strings.Fields(option)
	if len(parts) < 2 || !isColorList(parts) {
		return nil
	}
	return parts
}

func isColorList(options []string) bool {
	for _, opt := range options {
		if !colorPattern.MatchString(stripSpace(opt)) {
			return false
		}
	}
	return true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
