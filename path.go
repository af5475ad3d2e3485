package pk2

import (
	"strings"
	"unicode/utf8"
)

// splitPath validates that p is an absolute archive path (starts with
// '/') and splits it into components. Trailing separators are
// insignificant. "." and ".." are kept as components for the
// BlockManager to interpret, rather than collapsed here — unlike
// path.Clean, this never normalizes a leading ".." away, since silently
// clamping an archive-escaping path would hide the ErrInvalidPath the
// spec requires.
func splitPath(p string) ([]string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, ErrInvalidPath
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil, nil
	}

	parts := strings.Split(p, "/")
	components := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			// collapse repeated separators
			continue
		}
		if !utf8.ValidString(part) {
			return nil, ErrNonUnicodePath
		}
		components = append(components, part)
	}
	return components, nil
}

// splitBase returns the last component of components and the preceding
// ones, or ("", nil) if components is empty.
func splitBase(components []string) (string, []string) {
	if len(components) == 0 {
		return "", nil
	}
	return components[len(components)-1], components[:len(components)-1]
}
