package match

import (
	"strings"

	"record-mapper/internal/naming"
)

// NormalizeKey folds a column name for fuzzy matching: CamelCase is split,
// everything is lowercased and the separators _ - . and space are dropped.
// "Lactate_0", "lactate-0" and "Lactate 0" all become "lactate0".
func NormalizeKey(s string) string {
	var b strings.Builder

	for _, token := range naming.Tokenize(s) {
		for _, r := range token {
			if !isSeparator(r) {
				b.WriteRune(r)
			}
		}
	}

	return b.String()
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}
