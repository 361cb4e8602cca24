// Package slug builds URL slugs from titles and names.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallback is used when nothing of the source survives.
const fallback = "n-a"

// MaxBase caps Make's output so a "-N" suffix still fits a VARCHAR(255).
const MaxBase = 240

var ligatures = strings.NewReplacer(
	"œ", "oe", "Œ", "oe",
	"æ", "ae", "Æ", "ae",
	"ß", "ss",
	"ø", "o", "Ø", "o",
	"ł", "l", "Ł", "l",
	"&", " and ",
)

// Make lowercases s, strips accents and joins alphanumeric runs with '-'.
// The result is ASCII and at most MaxBase bytes long.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, ligatures.Replace(s))
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if b.Len() >= MaxBase || (dash && b.Len() >= MaxBase-1) {
				break
			}
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// ExistsFunc reports whether a slug is already taken by another row.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns Make(source), suffixed with -2, -3... until exists is false.
func Unique(ctx context.Context, source string, exists ExistsFunc) (string, error) {
	base := Make(source)
	candidate := base
	for i := 2; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
