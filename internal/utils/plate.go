package utils

import "strings"

// NormalizePlate reduces a raw plate reading to its canonical form:
// uppercase with everything except letters and digits stripped.
func NormalizePlate(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
