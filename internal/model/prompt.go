// Package model defines the data structures used throughout the application.
package model

import (
	"slices"
	"time"
)

// Prompt is a stored, reusable text prompt together with its usage stats.
//
// Tags are always normalized (lowercase, trimmed, unique) before a Prompt
// reaches storage. UseCount and LastUsed change only when the prompt is
// recorded as used.
type Prompt struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags"`
	Notes     *string    `json:"notes"`
	Favorite  bool       `json:"favorite"`
	UseCount  int64      `json:"useCount"`
	LastUsed  *time.Time `json:"lastUsed"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// HasTag reports whether the prompt carries the given normalized tag.
func (p *Prompt) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// TagCount is one entry of the tag aggregate: how many prompts carry Tag.
// It is computed on read and never stored.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
