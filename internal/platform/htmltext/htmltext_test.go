package htmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  A quiet   story ", "A quiet story"},
		{"line breaks", "First line.<br><br>\nSecond <i>line</i>.", "First line.\nSecond line."},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"source note", "Story.<br><br>(Source: Crunchyroll)", "Story.\n(Source: Crunchyroll)"},
		{"paragraphs", "<p>One</p><p>Two</p>", "One\nTwo"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Strip(tc.in))
		})
	}
}
