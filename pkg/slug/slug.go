// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gosimple "github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

const (
	maxLength = 96
	fallback  = "item"
)

func init() {
	gosimple.MaxLength = maxLength
	// Symbols become separators instead of English words, and '_' is not
	// kept inside slugs.
	gosimple.CustomRuneSub = map[rune]string{
		'&': "-",
		'@': "-",
		'_': "-",
	}
}

// Make lowercases, transliterates to ASCII and joins words with '-'.
func Make(name string) string {
	out := gosimple.Make(norm.NFKC.String(name))
	if out == "" {
		return fallback
	}
	return out
}

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns Make(name) or the first free "-N" variant.
func Unique(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Make(name)
	candidate := base
	for n := 1; ; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// Rename returns the slug for a record currently stored under current that is
// being renamed to name. current is kept when it already derives from name
// (base or base-N); otherwise a fresh unique slug is picked, treating current
// itself as free.
func Rename(ctx context.Context, name, current string, exists ExistsFunc) (string, error) {
	base := Make(name)
	if derivesFrom(current, base) {
		return current, nil
	}
	return Unique(ctx, name, func(ctx context.Context, candidate string) (bool, error) {
		if candidate == current {
			return false, nil
		}
		return exists(ctx, candidate)
	})
}

func derivesFrom(current, base string) bool {
	if current == base {
		return true
	}
	suffix, ok := strings.CutPrefix(current, base+"-")
	if !ok || suffix == "" {
		return false
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}
