// Package textsearch implements the keyword semantics shared by the report search
// endpoint and the dashboard quick filter.
package textsearch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases value and strips diacritics so that "Phòng Đẹp" and "phong dep"
// compare equal. The stroked d is not a combining sequence and is mapped explicitly.
func Fold(value string) string {
	if value == "" {
		return ""
	}
	folder := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(mapStrokedD),
		norm.NFC,
	)
	folded, _, err := transform.String(folder, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(folded)
}

func mapStrokedD(r rune) rune {
	switch r {
	case 'đ':
		return 'd'
	case 'Đ':
		return 'D'
	default:
		return r
	}
}
