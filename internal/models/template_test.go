package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSegmentDescription(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "  \n ", want: "(empty)"},
		{name: "short", text: "Hello\nthere", want: "Hello there"},
		{name: "long ascii", text: strings.Repeat("a", 70), want: strings.Repeat("a", 57) + "..."},
		{name: "long cyrillic", text: strings.Repeat("Промпт ", 20), want: strings.Repeat("Промпт ", 8) + "П..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment{Text: tt.text}.Description()
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" get ")
	assert.NoError(t, err)
	assert.Equal(t, MethodGET, m)

	m, err = ParseMethod("")
	assert.NoError(t, err)
	assert.Equal(t, MethodPOST, m)

	_, err = ParseMethod("DELETE")
	assert.Error(t, err)
}
