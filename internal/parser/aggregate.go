package parser

import "github.com/dpshade/pocket-forms/internal/models"

// Aggregate merges the fields of every segment into one list keyed by name.
// A segment's cached Fields are used when present, otherwise its text is parsed.
// The first occurrence of a name wins and first-seen order is preserved.
func Aggregate(segments []models.Segment) []models.FieldDefinition {
	return aggregate(segments, Parse)
}

func aggregate(segments []models.Segment, parse func(string) []models.FieldDefinition) []models.FieldDefinition {
	seen := make(map[string]bool)
	var merged []models.FieldDefinition

	for _, seg := range segments {
		fields := seg.Fields
		if len(fields) == 0 {
			fields = parse(seg.Text)
		}
		for _, f := range fields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			merged = append(merged, f)
		}
	}

	return merged
}

// DefaultValues maps every field to its first option
func DefaultValues(fields []models.FieldDefinition) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if len(f.Options) > 0 {
			values[f.Name] = f.Options[0]
		}
	}
	return values
}

// ReconcileValues keeps every value that is still one of its field's options
// and resets the rest to the field default. Values for vanished fields are dropped.
func ReconcileValues(fields []models.FieldDefinition, current map[string]string) map[string]string {
	values := DefaultValues(fields)
	for _, f := range fields {
		v, ok := current[f.Name]
		if !ok {
			continue
		}
		for _, opt := range f.Options {
			if opt == v {
				values[f.Name] = v
				break
			}
		}
	}
	return values
}
