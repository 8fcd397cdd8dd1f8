package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bizzlechizzle/datemine/internal/model"
)

const selectPattern = `SELECT pattern_id, name, pattern, category, enabled, last_error, created_at, updated_at
	FROM extraction_patterns`

// CreatePattern stores a custom pattern
func (q *Queries) CreatePattern(ctx context.Context, p *model.Pattern) error {
	_, err := sqlx.NamedExecContext(ctx, q.ext, `INSERT INTO extraction_patterns
		(pattern_id, name, pattern, category, enabled, last_error, created_at, updated_at)
		VALUES (:pattern_id, :name, :pattern, :category, :enabled, :last_error, :created_at, :updated_at)`, p)
	if err != nil {
		return wrap("create pattern "+p.Name, err)
	}
	return nil
}

// GetPattern loads a pattern by id
func (q *Queries) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	var p model.Pattern
	if err := sqlx.GetContext(ctx, q.ext, &p, q.ext.Rebind(selectPattern+` WHERE pattern_id = ?`), id); err != nil {
		return nil, wrap("get pattern "+id, err)
	}
	return &p, nil
}

// ListPatterns returns patterns by name, optionally only the enabled ones
func (q *Queries) ListPatterns(ctx context.Context, enabledOnly bool) ([]model.Pattern, error) {
	query := selectPattern
	var args []any
	if enabledOnly {
		query += ` WHERE enabled = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name`

	var patterns []model.Pattern
	if err := sqlx.SelectContext(ctx, q.ext, &patterns, q.ext.Rebind(query), args...); err != nil {
		return nil, wrap("list patterns", err)
	}
	return patterns, nil
}

// SetPatternEnabled toggles a pattern and records why it was disabled
func (q *Queries) SetPatternEnabled(ctx context.Context, id string, enabled bool, lastError *string, now time.Time) error {
	query := q.ext.Rebind(`UPDATE extraction_patterns SET enabled = ?, last_error = ?, updated_at = ? WHERE pattern_id = ?`)
	res, err := q.ext.ExecContext(ctx, query, enabled, lastError, now, id)
	if err != nil {
		return wrap("update pattern "+id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update pattern %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// DeletePattern removes a pattern
func (q *Queries) DeletePattern(ctx context.Context, id string) error {
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(`DELETE FROM extraction_patterns WHERE pattern_id = ?`), id)
	if err != nil {
		return wrap("delete pattern "+id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete pattern %s: %w", id, model.ErrNotFound)
	}
	return nil
}
