// Package fonts holds text preparation for the standard 14 fonts. Helvetica
// and friends are WinAnsi encoded and have no glyphs for several Turkish
// letters, so text is folded to ASCII equivalents before it is drawn.
package fonts

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var turkish = strings.NewReplacer(
	"İ", "I", "ı", "i",
	"Ğ", "G", "ğ", "g",
	"Ü", "U", "ü", "u",
	"Ş", "S", "ş", "s",
	"Ç", "C", "ç", "c",
	"Ö", "O", "ö", "o",
)

// Fold maps the fixed set of Turkish diacritics (İ ı Ğ ğ Ü ü Ş ş Ç ç Ö ö) to
// ASCII. Every other rune is left untouched.
func Fold(s string) string {
	return turkish.Replace(s)
}

// Simplify applies Fold and then strips combining marks from any rune outside
// Latin-1, so that "ł" stays but "ő" becomes "o". Runes WinAnsi can encode
// are preserved.
func Simplify(s string) string {
	s = Fold(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxLatin1 {
			b.WriteRune(r)
			continue
		}
		out, _, err := transform.String(stripMarks(), string(r))
		if err != nil {
			b.WriteRune(r)
			continue
		}
		b.WriteString(out)
	}
	return b.String()
}

// The chain is stateful, so each call gets its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
