package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/prompt-vault/internal/apperror"
	"github.com/sakif/prompt-vault/internal/model"
	"github.com/sakif/prompt-vault/internal/query"
	"github.com/sakif/prompt-vault/internal/repository"
	"github.com/sakif/prompt-vault/internal/tags"
)

var _ repository.PromptRepository = (*DB)(nil)

// timeLayout is fixed-width so that, in UTC, text order equals time order.
// That lets SQL compare timestamps with plain MAX().
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// touchUpdatedAt sets updated_at to the bound time, never earlier than
// created_at. A wall clock stepping backwards cannot break
// updated_at >= created_at.
const touchUpdatedAt = `updated_at = MAX(?, created_at)`

const promptColumns = `id, title, content, tags, notes, favorite, use_count, last_used, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new prompt. On success the caller's prompt carries the
// assigned ID and timestamps, with UseCount 0 and LastUsed nil.
func (db *DB) Create(ctx context.Context, prompt *model.Prompt) error {
	now := db.timestamp()

	encodedTags, err := encodeTags(prompt.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating prompt: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO prompts (title, content, tags, notes, favorite, use_count, last_used, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		prompt.Title,
		prompt.Content,
		encodedTags,
		nullString(prompt.Notes),
		boolToInt(prompt.Favorite),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating prompt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new prompt id: %w", err)
	}

	prompt.ID = id
	prompt.Tags = tags.Normalize(prompt.Tags)
	prompt.UseCount = 0
	prompt.LastUsed = nil
	prompt.CreatedAt = now
	prompt.UpdatedAt = now
	return nil
}

// GetByID retrieves a single prompt by its ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Prompt, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)

	prompt, err := db.scanPrompt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("prompt", id)
		}
		return nil, fmt.Errorf("sqlite: getting prompt %d: %w", id, err)
	}
	return prompt, nil
}

// List returns the prompts matching filter, favorites first, then most
// recently updated, then newest id.
//
// The favorite flag is pushed down to SQL. Term and tag matching run in Go
// through filter.Match, so the semantics stay identical to the in-memory
// rules regardless of how tags are encoded on disk. All rows are read in a
// single transaction.
func (db *DB) List(ctx context.Context, filter query.Filter) ([]model.Prompt, error) {
	filter = filter.Normalize()

	stmt := `SELECT ` + promptColumns + ` FROM prompts`
	if filter.FavoriteOnly {
		stmt += ` WHERE favorite = 1`
	}
	stmt += ` ORDER BY favorite DESC, updated_at DESC, id DESC`

	var all []model.Prompt
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		all, err = db.queryPrompts(ctx, tx, stmt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing prompts: %w", err)
	}

	// ORDER BY above matches query.Compare, so an unfiltered list needs
	// no second pass.
	if filter.IsEmpty() {
		if all == nil {
			all = []model.Prompt{}
		}
		return all, nil
	}

	return filter.Apply(all), nil
}

// Update replaces the editable fields of an existing prompt and reloads it,
// so the caller's prompt reflects the stored usage stats and timestamps.
func (db *DB) Update(ctx context.Context, prompt *model.Prompt) error {
	encodedTags, err := encodeTags(prompt.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: updating prompt %d: %w", prompt.ID, err)
	}

	var updated *model.Prompt
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE prompts
			 SET title = ?, content = ?, tags = ?, notes = ?, favorite = ?, `+touchUpdatedAt+`
			 WHERE id = ?`,
			prompt.Title,
			prompt.Content,
			encodedTags,
			nullString(prompt.Notes),
			boolToInt(prompt.Favorite),
			formatTime(db.timestamp()),
			prompt.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating prompt %d: %w", prompt.ID, err)
		}
		if err := requireOneRow(result, prompt.ID); err != nil {
			return err
		}

		updated, err = db.getInTx(ctx, tx, prompt.ID)
		return err
	})
	if err != nil {
		return err
	}

	*prompt = *updated
	return nil
}

// Delete removes a prompt permanently.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting prompt %d: %w", id, err)
	}
	return requireOneRow(result, id)
}

// RecordUsage increments use_count and stamps last_used and updated_at with
// the same instant (updated_at is still clamped to created_at).
func (db *DB) RecordUsage(ctx context.Context, id int64) (*model.Prompt, error) {
	now := formatTime(db.timestamp())

	return db.mutate(ctx, id,
		`UPDATE prompts
		 SET use_count = use_count + 1, last_used = ?, `+touchUpdatedAt+`
		 WHERE id = ?`,
		now, now, id,
	)
}

// ToggleFavorite flips the favorite flag and refreshes updated_at.
func (db *DB) ToggleFavorite(ctx context.Context, id int64) (*model.Prompt, error) {
	return db.mutate(ctx, id,
		`UPDATE prompts
		 SET favorite = CASE favorite WHEN 0 THEN 1 ELSE 0 END, `+touchUpdatedAt+`
		 WHERE id = ?`,
		formatTime(db.timestamp()), id,
	)
}

// TagCounts aggregates tags over every stored prompt.
func (db *DB) TagCounts(ctx context.Context) ([]model.TagCount, error) {
	var prompts []model.Prompt
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, tags FROM prompts`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id  int64
				raw sql.NullString
			)
			if err := rows.Scan(&id, &raw); err != nil {
				return fmt.Errorf("scanning tags row: %w", err)
			}
			prompts = append(prompts, model.Prompt{ID: id, Tags: db.decodeTags(id, raw)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting tags: %w", err)
	}

	return tags.Count(prompts), nil
}

// Count returns the number of stored prompts.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting prompts: %w", err)
	}
	return n, nil
}

// mutate runs a single-row UPDATE and returns the row as committed.
func (db *DB) mutate(ctx context.Context, id int64, stmt string, args ...any) (*model.Prompt, error) {
	var prompt *model.Prompt
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("sqlite: updating prompt %d: %w", id, err)
		}
		if err := requireOneRow(result, id); err != nil {
			return err
		}

		prompt, err = db.getInTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prompt, nil
}

func (db *DB) getInTx(ctx context.Context, tx *sql.Tx, id int64) (*model.Prompt, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)

	prompt, err := db.scanPrompt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("prompt", id)
		}
		return nil, fmt.Errorf("sqlite: reloading prompt %d: %w", id, err)
	}
	return prompt, nil
}

func (db *DB) queryPrompts(ctx context.Context, tx *sql.Tx, stmt string, args ...any) ([]model.Prompt, error) {
	rows, err := tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		p, err := db.scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prompts: %w", err)
	}
	return prompts, nil
}

// scanPrompt decodes one row laid out as promptColumns. Integer flags and
// text timestamps are converted to their Go types here and nowhere else.
func (db *DB) scanPrompt(s rowScanner) (*model.Prompt, error) {
	var (
		p         model.Prompt
		rawTags   sql.NullString
		notes     sql.NullString
		favorite  int64
		lastUsed  sql.NullString
		createdAt string
		updatedAt string
	)

	if err := s.Scan(
		&p.ID, &p.Title, &p.Content, &rawTags, &notes,
		&favorite, &p.UseCount, &lastUsed, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("prompt %d created_at: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("prompt %d updated_at: %w", p.ID, err)
	}
	if lastUsed.Valid {
		t, err := parseTime(lastUsed.String)
		if err != nil {
			return nil, fmt.Errorf("prompt %d last_used: %w", p.ID, err)
		}
		p.LastUsed = &t
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	p.Favorite = favorite != 0
	p.Tags = db.decodeTags(p.ID, rawTags)

	return &p, nil
}

// decodeTags reads the JSON array stored in the tags column. A column that
// no longer decodes is treated as "no tags" and logged, so one damaged row
// does not take down listing.
func (db *DB) decodeTags(id int64, raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}

	var decoded []string
	if err := json.Unmarshal([]byte(raw.String), &decoded); err != nil {
		db.logger.Warn("undecodable tags column",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return []string{}
	}
	return tags.Normalize(decoded)
}

func encodeTags(list []string) (string, error) {
	b, err := json.Marshal(tags.Normalize(list))
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

func requireOneRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("prompt", id)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
