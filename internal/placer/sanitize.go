package placer

import "strings"

// Characters that cannot appear in a path segment: the path separators
// plus the characters reserved on common filesystems.
const reservedChars = `/\:*?"<>|`

// Sanitize makes a metadata value safe to use as one path segment.
// Reserved characters and control characters become underscores; leading
// and trailing dots and spaces are trimmed so segments stay valid on all
// supported filesystems. An empty result falls back to "_".
func Sanitize(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))
	for _, r := range segment {
		if r < 0x20 || strings.ContainsRune(reservedChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "_"
	}
	return out
}
