package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses inner whitespace, so
// "  Prénom " and "prenom" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// FoldKey is Fold with spaces, hyphens and dots turned into underscores.
func FoldKey(s string) string {
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	return r.Replace(Fold(s))
}

// NormalizeEmail is the canonical form used for uniqueness checks.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
