// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)      → parses requests, writes responses
//	Service (business layer)  → validates, normalizes, orchestrates, logs
//	Repository (data layer)   → reads/writes the database
//
// PromptService receives a repository.PromptRepository interface, so tests
// run it against an in-memory mock and production runs it against SQLite.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/prompt-vault/internal/apperror"
	"github.com/sakif/prompt-vault/internal/model"
	"github.com/sakif/prompt-vault/internal/query"
	"github.com/sakif/prompt-vault/internal/repository"
	"github.com/sakif/prompt-vault/internal/tags"
	"github.com/sakif/prompt-vault/internal/validation"
)

// PromptInput carries the editable fields of a prompt for create and update.
// Tags may be in any form; they are normalized before validation.
//
// Title and content are the only required fields, checked after trimming.
// There are no length limits here: the HTTP layer caps the whole body at
// 1 MB, and that is the only bound on field size.
type PromptInput struct {
	Title    string   `json:"title" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	Tags     []string `json:"tags"`
	Notes    string   `json:"notes"`
	Favorite bool     `json:"favorite"`
}

// normalize trims text fields and canonicalizes tags.
func (in PromptInput) normalize() PromptInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Tags = tags.Normalize(in.Tags)
	return in
}

// apply copies the input onto p. Blank notes are stored as NULL.
func (in PromptInput) apply(p *model.Prompt) {
	p.Title = in.Title
	p.Content = in.Content
	p.Tags = in.Tags
	p.Favorite = in.Favorite
	p.Notes = nil
	if in.Notes != "" {
		notes := in.Notes
		p.Notes = &notes
	}
}

// PromptService handles business logic for prompts.
type PromptService struct {
	repo      repository.PromptRepository
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPromptService creates a new PromptService.
func NewPromptService(repo repository.PromptRepository, logger *slog.Logger) *PromptService {
	return &PromptService{
		repo:      repo,
		validator: validation.New(),
		logger:    logger,
	}
}

// Create validates and saves a new prompt. Nothing is stored when
// validation fails.
func (s *PromptService) Create(ctx context.Context, input PromptInput) (*model.Prompt, error) {
	input = input.normalize()
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	prompt := &model.Prompt{}
	input.apply(prompt)

	if err := s.repo.Create(ctx, prompt); err != nil {
		return nil, s.storageError("creating prompt", err, slog.String("title", input.Title))
	}

	s.logger.Info("prompt created",
		slog.Int64("id", prompt.ID),
		slog.String("title", prompt.Title),
		slog.Int("tags", len(prompt.Tags)),
	)
	return prompt, nil
}

// Get retrieves a prompt by its ID.
// Returns apperror.ErrNotFound if the prompt doesn't exist.
func (s *PromptService) Get(ctx context.Context, id int64) (*model.Prompt, error) {
	if id <= 0 {
		return nil, apperror.NotFound("prompt", id)
	}

	prompt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storageError("getting prompt", err, slog.Int64("id", id))
	}
	return prompt, nil
}

// List returns every prompt matching filter: favorites first, then most
// recently updated, then newest.
func (s *PromptService) List(ctx context.Context, filter query.Filter) ([]model.Prompt, error) {
	prompts, err := s.repo.List(ctx, filter.Normalize())
	if err != nil {
		return nil, s.storageError("listing prompts", err)
	}
	if prompts == nil {
		prompts = []model.Prompt{}
	}
	return prompts, nil
}

// Update replaces the editable fields of an existing prompt. Validation runs
// before the lookup, so an invalid edit never touches the stored record.
// CreatedAt, UseCount and LastUsed are preserved.
func (s *PromptService) Update(ctx context.Context, id int64, input PromptInput) (*model.Prompt, error) {
	input = input.normalize()
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, apperror.NotFound("prompt", id)
	}

	prompt := &model.Prompt{ID: id}
	input.apply(prompt)

	if err := s.repo.Update(ctx, prompt); err != nil {
		return nil, s.storageError("updating prompt", err, slog.Int64("id", id))
	}

	s.logger.Info("prompt updated",
		slog.Int64("id", prompt.ID),
		slog.String("title", prompt.Title),
	)
	return prompt, nil
}

// Delete removes a prompt permanently.
// Returns apperror.ErrNotFound if the prompt doesn't exist.
func (s *PromptService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.NotFound("prompt", id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.storageError("deleting prompt", err, slog.Int64("id", id))
	}

	s.logger.Info("prompt deleted", slog.Int64("id", id))
	return nil
}

// RecordUsage marks the prompt as used once more (the user copied it).
func (s *PromptService) RecordUsage(ctx context.Context, id int64) (*model.Prompt, error) {
	if id <= 0 {
		return nil, apperror.NotFound("prompt", id)
	}

	prompt, err := s.repo.RecordUsage(ctx, id)
	if err != nil {
		return nil, s.storageError("recording prompt usage", err, slog.Int64("id", id))
	}

	s.logger.Debug("prompt used",
		slog.Int64("id", id),
		slog.Int64("use_count", prompt.UseCount),
	)
	return prompt, nil
}

// ToggleFavorite flips the favorite flag.
func (s *PromptService) ToggleFavorite(ctx context.Context, id int64) (*model.Prompt, error) {
	if id <= 0 {
		return nil, apperror.NotFound("prompt", id)
	}

	prompt, err := s.repo.ToggleFavorite(ctx, id)
	if err != nil {
		return nil, s.storageError("toggling favorite", err, slog.Int64("id", id))
	}

	s.logger.Debug("prompt favorite toggled",
		slog.Int64("id", id),
		slog.Bool("favorite", prompt.Favorite),
	)
	return prompt, nil
}

// TagCounts returns how many prompts carry each tag, most used first.
func (s *PromptService) TagCounts(ctx context.Context) ([]model.TagCount, error) {
	counts, err := s.repo.TagCounts(ctx)
	if err != nil {
		return nil, s.storageError("counting tags", err)
	}
	if counts == nil {
		counts = []model.TagCount{}
	}
	return counts, nil
}

// Count returns the number of stored prompts.
func (s *PromptService) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.storageError("counting prompts", err)
	}
	return n, nil
}

// storageError passes domain errors through untouched and wraps anything
// else as apperror.ErrStorage, logging it once here.
func (s *PromptService) storageError(op string, err error, attrs ...any) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	args := append([]any{slog.String("error", err.Error())}, attrs...)
	s.logger.Error(op+" failed", args...)
	return fmt.Errorf("%s: %w", op, apperror.Storage(op, err))
}
