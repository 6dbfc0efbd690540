// utils/text.go
package utils

import (
	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 80

func init() {
	slug.MaxLength = maxSlugLength
}

// NormalizeDescription puts free-form text into Unicode NFC so visually identical
// descriptions are stored byte-identical.
func NormalizeDescription(s string) string {
	return norm.NFC.String(s)
}

// DescriptionSlug derives a URL-safe handle from a description (e.g., "Fix the login bug!" -> "fix-the-login-bug").
// Empty when the description has no sluggable characters.
func DescriptionSlug(description string) string {
	return slug.Make(description)
}
