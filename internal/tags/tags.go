// Package tags owns tag normalization and the derived tag aggregate.
//
// Every path that stores or counts tags goes through Normalize, so the same
// logical tag can never appear as two strings differing by case or
// surrounding whitespace.
package tags

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sakif/prompt-vault/internal/model"
)

// Delimiter separates tags in the single-string input form.
const Delimiter = ","

// Normalize trims and lowercases each candidate, drops empty results and
// removes duplicates. Survivors keep the order of their first occurrence.
// The result is never nil, and Normalize(Normalize(x)) == Normalize(x).
func Normalize(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		tag := strings.ToLower(strings.TrimSpace(c))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Split normalizes a comma-delimited tag string, e.g. "Go, SQL ,go" → [go sql].
func Split(s string) []string {
	if s == "" {
		return []string{}
	}
	return Normalize(strings.Split(s, Delimiter))
}

// Count builds the tag aggregate over the given prompts: one increment per
// prompt for each tag it carries. Entries are ordered by count descending,
// then by tag ascending.
func Count(prompts []model.Prompt) []model.TagCount {
	counts := make(map[string]int)
	for i := range prompts {
		// Stored tags are already normalized; normalizing again guards
		// against rows written by older versions of the schema.
		for _, tag := range Normalize(prompts[i].Tags) {
			counts[tag]++
		}
	}

	result := make([]model.TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, model.TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(result, func(a, b model.TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	return result
}
