package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

var diacriticFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldDiacritics maps accented letters to their base form,
// e.g. "Galatasaray Kulübü" -> "Galatasaray Kulubu".
func FoldDiacritics(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		return s
	}
	return folded
}

// CleanCell strips non-breaking spaces and collapses inner whitespace in
// a scraped table cell.
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.TrimSpace(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// NormalizeName lowercases, folds diacritics and removes whitespace and
// punctuation so that spelling variants of the same club or country
// compare equal.
func NormalizeName(name string) string {
	name = FoldDiacritics(name)
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '.', '\'', '-':
			return -1
		}
		return r
	}, name)
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}
