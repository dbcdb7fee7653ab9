package store

import "strings"

// maxNameLength caps sanitized file names well under common filesystem
// limits, leaving room for the .yaml suffix and temp-file decoration.
const maxNameLength = 200

// SanitizeID deterministically maps a remote identifier to a
// filesystem-safe file name: lowercase, with anything outside
// [a-z0-9._-] replaced by an underscore. The mapping is lossy, so two
// distinct identifiers can collide; callers must treat a collision as fatal
// for the content type rather than pick a winner.
func SanitizeID(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	// Dot-only names would collide with directory entries.
	if strings.Trim(name, ".") == "" {
		return "_"
	}
	return name
}
