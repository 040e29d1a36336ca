package shared

import (
	"strings"
	"unicode"
)

// NormalizeDocument strips punctuation from a tax document (CPF, CNPJ) so
// formatted and bare inputs compare equal.
func NormalizeDocument(doc string) string {
	var b strings.Builder
	for _, r := range doc {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
