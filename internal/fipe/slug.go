package fipe

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const emptySlug = "unnamed"

// CanonicalName trims a source name and collapses inner whitespace.
func CanonicalName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NameKey is the identity of a source name: two names with the same key are
// the same entity regardless of casing or spacing.
func NameKey(name string) string {
	return strings.ToLower(CanonicalName(name))
}

// Slugify derives an identifier-safe code from name. The result is lowercase
// ASCII letters, digits and single hyphens, at most maxLen runes long, and
// never empty.
func Slugify(name string, maxLen int) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}

	slug := b.String()
	if slug == "" {
		slug = emptySlug
	}
	return truncateSlug(slug, maxLen)
}

func truncateSlug(slug string, maxLen int) string {
	if maxLen <= 0 || len(slug) <= maxLen {
		return slug
	}
	return strings.TrimRight(slug[:maxLen], "-")
}

// ResolveCollision returns code if it is not taken, otherwise the first of
// code1, code2, ... that is free. The base is shortened so the suffixed code
// still fits in maxLen.
func ResolveCollision(code string, taken map[string]struct{}, maxLen int) string {
	if _, ok := taken[code]; !ok {
		return code
	}
	for n := 1; ; n++ {
		suffix := strconv.Itoa(n)
		base := code
		if maxLen > 0 && len(base)+len(suffix) > maxLen {
			cut := maxLen - len(suffix)
			if cut < 1 {
				cut = 1
			}
			base = strings.TrimRight(base[:cut], "-")
		}
		candidate := base + suffix
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// CodeAllocator hands out unique codes for one normalization run.
type CodeAllocator struct {
	maxLen int
	taken  map[string]struct{}
}

// NewCodeAllocator seeds the allocator with codes that already exist.
func NewCodeAllocator(maxLen int, existing ...string) *CodeAllocator {
	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[c] = struct{}{}
	}
	return &CodeAllocator{maxLen: maxLen, taken: taken}
}

// Assign reserves a unique code derived from base.
func (a *CodeAllocator) Assign(base string) string {
	code := ResolveCollision(truncateSlug(base, a.maxLen), a.taken, a.maxLen)
	a.taken[code] = struct{}{}
	return code
}

// Reserve records code as taken without deriving anything.
func (a *CodeAllocator) Reserve(code string) {
	a.taken[code] = struct{}{}
}

// BrandCode is the unsuffixed code for a brand name.
func BrandCode(name string) string {
	return Slugify(name, BrandCodeMaxLen)
}

// ModelCode is the unsuffixed code for a model under brandCode.
func ModelCode(brandCode, modelName string) string {
	return truncateSlug(brandCode+"-"+Slugify(modelName, ModelCodeMaxLen), ModelCodeMaxLen)
}
