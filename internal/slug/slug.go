// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength is the widest slug the storage column accepts.
	MaxLength = 50
	// BaseLength leaves room for a "-<n>" collision suffix.
	BaseLength = 45
)

var (
	nonSlugChars = regexp.MustCompile(`[^\w\s-]`)
	separators   = regexp.MustCompile(`[-\s]+`)
)

// TakenFunc reports whether candidate already belongs to another entity.
type TakenFunc func(ctx context.Context, candidate string) (bool, error)

// Normalize lowercases name, folds it to ASCII and joins words with hyphens.
// It returns "" when nothing slug-worthy is left.
func Normalize(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	cleaned := nonSlugChars.ReplaceAllString(strings.ToLower(b.String()), "")
	return strings.Trim(separators.ReplaceAllString(cleaned, "-"), "-_")
}

// Base returns the normalized, truncated token that suffixes are appended to.
func Base(name, fallback string) string {
	base := Normalize(name)
	if base == "" {
		base = fallback
	}
	if len(base) > BaseLength {
		base = strings.TrimRight(base[:BaseLength], "-")
	}
	return base
}

// Unique returns the first of base, base-2, base-3, ... that taken rejects.
func Unique(ctx context.Context, name, fallback string, taken TakenFunc) (string, error) {
	base := Base(name, fallback)
	candidate := base
	for i := 2; ; i++ {
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
