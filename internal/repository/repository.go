// Package repository declares the persistence contract for prompts.
//
// Implementations must make each mutation atomic for the record it touches
// and must serve List and TagCounts from a consistent snapshot.
package repository

import (
	"context"

	"github.com/sakif/prompt-vault/internal/model"
	"github.com/sakif/prompt-vault/internal/query"
)

// PromptRepository persists prompts. Every method that takes an id returns
// an apperror.ErrNotFound error when no such prompt exists.
type PromptRepository interface {
	// Create assigns ID, CreatedAt and UpdatedAt and zeroes the usage stats.
	Create(ctx context.Context, prompt *model.Prompt) error
	GetByID(ctx context.Context, id int64) (*model.Prompt, error)
	// List returns every prompt matching filter in query.Sort order.
	List(ctx context.Context, filter query.Filter) ([]model.Prompt, error)
	// Update replaces the editable fields and refreshes UpdatedAt. ID,
	// CreatedAt, UseCount and LastUsed are left untouched.
	Update(ctx context.Context, prompt *model.Prompt) error
	Delete(ctx context.Context, id int64) error
	RecordUsage(ctx context.Context, id int64) (*model.Prompt, error)
	ToggleFavorite(ctx context.Context, id int64) (*model.Prompt, error)
	TagCounts(ctx context.Context) ([]model.TagCount, error)
	Count(ctx context.Context) (int, error)
}
