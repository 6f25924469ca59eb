package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake converts a reflected type name to snake_case. Anything that is not
// a letter or digit, such as the brackets of a generic instance, becomes a
// single underscore.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	underscore := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			underscore()
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsUpper(r):
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					underscore()
				}
			case unicode.IsDigit(r) && unicode.IsLetter(prev):
				underscore()
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Trim(b.String(), "_")
}
