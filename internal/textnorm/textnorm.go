// Package textnorm is the single normalization boundary for customer
// identity fields. Every value compared or persisted by the dedup workflow
// goes through here first, so "03-1234-5678" and "０３（１２３４）５６７８"
// meet as the same digits and blank strings collapse to null.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var phoneStripper = strings.NewReplacer(
	"-", "", "ー", "", "−", "",
	" ", "", "　", "",
	"(", "", ")", "", "（", "", "）", "",
)

// BlankToNull trims v and collapses empty or whitespace-only strings to nil.
// Idempotent: applying it twice gives the same result as once.
func BlankToNull(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// NormalizePhone strips separators and parentheses (half- and full-width)
// and folds full-width digits to ASCII.
func NormalizePhone(s string) string {
	return width.Fold.String(phoneStripper.Replace(strings.TrimSpace(s)))
}

// NormalizePostal removes the hyphen from postal codes ("123-4567" → "1234567").
func NormalizePostal(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

// NormalizeEmail lowercases after trimming; empty stays empty.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold produces the comparison form used for fuzzy name/kana matching:
// lowercase, full-width letters and digits folded to half-width, katakana
// folded to hiragana, symbols and spaces dropped.
func Fold(s string) string {
	folded := width.Fold.String(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'ァ' && r <= 'ヶ':
			// katakana → hiragana
			b.WriteRune(r - 0x60)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContainsFolded reports whether needle occurs in haystack once both are folded.
// Empty needles never match.
func ContainsFolded(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}
