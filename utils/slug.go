package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// StripAccents removes combining marks ("Crêperie" becomes "Creperie").
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify lowercases, strips accents and joins words with hyphens.
func Slugify(s string) string {
	s = strings.ToLower(StripAccents(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// UniqueSlug appends -2, -3... to the slug of name until exists reports false.
func UniqueSlug(name string, exists func(slug string) (bool, error)) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "etablissement"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
