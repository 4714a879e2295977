package phone

import "strings"

// Normalize strips the separator characters dialers commonly insert
// (spaces, hyphens, parentheses) so that "(555) 123-4567" and
// "5551234567" compare equal. It deliberately keeps "+" and leading
// zeros: trunk prefixes are significant to the PBX.
func Normalize(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		switch r {
		case ' ', '-', '(', ')':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two numbers match after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsEmpty reports whether the number contains no significant characters.
func IsEmpty(number string) bool {
	return Normalize(strings.TrimSpace(number)) == ""
}
