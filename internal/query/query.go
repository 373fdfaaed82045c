// Package query turns a filter request into a predicate over prompts and
// defines the fixed order in which matching prompts are returned.
//
// All supplied filters combine with AND. Matching is plain case-insensitive
// substring containment; there is no tokenization or ranking.
package query

import (
	"cmp"
	"net/url"
	"slices"
	"strings"

	"github.com/sakif/prompt-vault/internal/model"
)

// Filter describes a list request. Zero values mean "no constraint".
type Filter struct {
	Term         string // substring of title, content or any tag
	Tag          string // exact normalized tag
	FavoriteOnly bool
}

// FromValues reads a filter from URL query parameters: search, tag and
// favorite. Only the literal favorite=true enables the favorite filter.
func FromValues(v url.Values) Filter {
	return Filter{
		Term:         v.Get("search"),
		Tag:          v.Get("tag"),
		FavoriteOnly: v.Get("favorite") == "true",
	}.Normalize()
}

// Normalize trims and lowercases Term and Tag. A blank value becomes "".
func (f Filter) Normalize() Filter {
	f.Term = strings.ToLower(strings.TrimSpace(f.Term))
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	return f
}

// IsEmpty reports whether the filter lets every prompt through.
func (f Filter) IsEmpty() bool {
	n := f.Normalize()
	return n.Term == "" && n.Tag == "" && !n.FavoriteOnly
}

// Match reports whether p satisfies every constraint of the filter.
func (f Filter) Match(p *model.Prompt) bool {
	f = f.Normalize()

	if f.FavoriteOnly && !p.Favorite {
		return false
	}
	if f.Tag != "" && !p.HasTag(f.Tag) {
		return false
	}
	if f.Term != "" && !containsTerm(p, f.Term) {
		return false
	}
	return true
}

func containsTerm(p *model.Prompt, term string) bool {
	if strings.Contains(strings.ToLower(p.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	return slices.ContainsFunc(p.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), term)
	})
}

// Apply returns the prompts that match f, in sorted order.
func (f Filter) Apply(prompts []model.Prompt) []model.Prompt {
	out := make([]model.Prompt, 0, len(prompts))
	for i := range prompts {
		if f.Match(&prompts[i]) {
			out = append(out, prompts[i])
		}
	}
	Sort(out)
	return out
}

// Compare orders favorites first, then the most recently updated, then the
// most recently created (highest id). No two distinct prompts compare equal.
func Compare(a, b model.Prompt) int {
	if a.Favorite != b.Favorite {
		if a.Favorite {
			return -1
		}
		return 1
	}
	if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Sort orders prompts in place using Compare.
func Sort(prompts []model.Prompt) {
	slices.SortFunc(prompts, Compare)
}
