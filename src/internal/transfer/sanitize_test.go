package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Clean", "teamboard-backup.sql", "teamboard-backup.sql"},
		{"PathTraversal", "../../etc/passwd", "etcpasswd"},
		{"Backslashes", `..\..\windows\system32`, "windowssystem32"},
		{"NulByte", "dump\x00.sql", "dump.sql"},
		{"ControlChars", "du\x01mp\x1f.sql", "dump.sql"},
		{"Quotes", `"dump".sql`, "dump.sql"},
		{"ShellMetachars", "dump;rm -rf|x$(y).sql", "dumprm -rfxy.sql"},
		{"DotsOnly", "...", "backup"},
		{"Empty", "", "backup"},
		{"StrippedToNothing", `"/\;`, "backup"},
		{"LeadingTrailingDots", "..dump.sql..", "dump.sql"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}
}
