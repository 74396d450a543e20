// Package zoning resolves parcel points to zoning districts and normalizes
// raw district codes into canonical base codes.
package zoning

import (
	"regexp"
	"strings"
)

// BaseCode is a canonical zoning family + density identifier, e.g. "R1" or
// "RD1.5". It carries no height-district, overlay, or qualifier suffixes.
type BaseCode string

// BaseUnclassified is the sentinel base for inputs that are empty or entirely
// consumed by qualifier stripping. The yield table maps it to the
// conservative default density.
const BaseUnclassified BaseCode = "UNCLASSIFIED"

// markerPattern matches bracketed and parenthetical qualifier markers, e.g.
// the "[Q]" and "(T)" interim-control annotations on LA zone strings.
var markerPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// qualifierPrefixes is the versioned set of single-letter qualifier tokens
// stripped when directly prefixed to the base segment (QR3 -> R3). Tokens
// after the first hyphen (height districts, overlays) are dropped wholesale
// by the hyphen split, so they do not appear here.
var qualifierPrefixes = []byte{'Q', 'T', 'D'}

// Normalize converts a raw zoning district string into its base code.
// It strips qualifier markers, keeps the segment before the first hyphen,
// and upper-cases the result. Normalize is pure and idempotent:
// Normalize(string(Normalize(x))) == Normalize(x) for all x.
func Normalize(raw string) BaseCode {
	s := markerPattern.ReplaceAllString(raw, "")
	s = strings.TrimSpace(s)

	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToUpper(strings.TrimSpace(s))

	// Strip attached qualifier prefixes: only when the remainder still starts
	// with a letter, so density codes like "RD1.5" survive untouched.
	for len(s) > 1 && isQualifierPrefix(s[0]) && isLetter(s[1]) {
		s = s[1:]
	}

	if s == "" {
		return BaseUnclassified
	}
	return BaseCode(s)
}

func isQualifierPrefix(b byte) bool {
	for _, q := range qualifierPrefixes {
		if b == q {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// IsR1Family reports whether a base code belongs to the single-family R1
// family (R1 and its sub-variants such as R1V, R1F, R1R, R1H).
func (b BaseCode) IsR1Family() bool {
	return strings.HasPrefix(string(b), "R1")
}
