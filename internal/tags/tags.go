// Package tags parses and validates the comma-delimited tag lists used by
// tag groups and collection filters.
package tags

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tgienger/stash/internal/errs"
)

// MaxLength is the longest tag accepted, in characters.
const MaxLength = 50

// Separator joins tags in storage.
const Separator = ","

// Split breaks raw on commas and trims each piece. Empty pieces are dropped;
// duplicates are kept.
func Split(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, Separator) {
		if tag := strings.TrimSpace(part); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Normalize splits raw and removes case-sensitive duplicates, keeping the
// first occurrence of each tag.
func Normalize(raw string) []string {
	return Dedup(Split(raw))
}

// Dedup returns list without repeated entries, order preserved.
func Dedup(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, tag := range list {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Join renders a tag list in its stored form.
func Join(list []string) string {
	return strings.Join(list, Separator)
}

// Clean normalizes raw for storage. It fails when nothing is left after
// trimming or when a tag exceeds MaxLength.
func Clean(raw string) ([]string, error) {
	list := Normalize(raw)
	if len(list) == 0 {
		return nil, errs.Validation("at least one valid tag is required")
	}
	for _, tag := range list {
		if utf8.RuneCountInString(tag) > MaxLength {
			return nil, errs.Validation("tag %q is too long (max %d characters)", tag, MaxLength)
		}
	}
	return list, nil
}

// Validate checks raw the way the editor form does before saving. Unlike
// Clean it rejects duplicates instead of folding them.
func Validate(raw string) (bool, string) {
	if strings.TrimSpace(raw) == "" {
		return false, "Tags cannot be empty"
	}

	list := Split(raw)
	if len(list) == 0 {
		return false, "At least one valid tag is required"
	}
	if len(Dedup(list)) != len(list) {
		return false, "Duplicate tags found"
	}
	for _, tag := range list {
		if utf8.RuneCountInString(tag) > MaxLength {
			return false, fmt.Sprintf("Tag '%s' is too long (max %d characters)", tag, MaxLength)
		}
	}
	return true, fmt.Sprintf("%d tags valid", len(list))
}
