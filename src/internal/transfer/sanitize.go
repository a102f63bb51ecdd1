package transfer

import "strings"

const fallbackFilename = "backup"

// SanitizeFilename makes an untrusted filename safe for use inside a
// Content-Disposition header. Path separators, control characters (NUL
// included), quotes and shell metacharacters are stripped; catalog
// filenames are never reflected verbatim.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			// control characters
		case r == '/' || r == '\\':
			// path separators
		case strings.ContainsRune("\"'`$&|;<>*?{}[]()!#~", r):
			// quotes and shell metacharacters
		default:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	// A name reduced to dots could still climb directories downstream
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return fallbackFilename
	}
	return cleaned
}
