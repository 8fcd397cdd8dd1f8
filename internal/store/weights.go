package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// RecordFeedback bumps the approval or rejection counter of one keyword and
// stores the modifier computed from the new counts. Run it inside a
// transaction so the read-modify-write is atomic.
func (q *Queries) RecordFeedback(ctx context.Context, category model.Category, keyword string, approved bool,
	modifier func(approvals, rejections int) float64, now time.Time) (*model.WeightEntry, error) {
	approvals, rejections := 0, 1
	if approved {
		approvals, rejections = 1, 0
	}

	upsert := q.ext.Rebind(`INSERT INTO keyword_weights (category, keyword, approvals, rejections, weight_modifier, updated_at)
		VALUES (?, ?, ?, ?, 1.0, ?)
		ON CONFLICT (category, keyword) DO UPDATE SET
			approvals = keyword_weights.approvals + excluded.approvals,
			rejections = keyword_weights.rejections + excluded.rejections,
			updated_at = excluded.updated_at`)
	if _, err := q.ext.ExecContext(ctx, upsert, category, keyword, approvals, rejections, now); err != nil {
		return nil, wrap("record feedback", err)
	}

	var entry model.WeightEntry
	query := q.ext.Rebind(`SELECT category, keyword, approvals, rejections, weight_modifier, updated_at
		FROM keyword_weights WHERE category = ? AND keyword = ?`)
	if err := sqlx.GetContext(ctx, q.ext, &entry, query, category, keyword); err != nil {
		return nil, wrap("read keyword weight", err)
	}

	entry.WeightModifier = modifier(entry.Approvals, entry.Rejections)
	update := q.ext.Rebind(`UPDATE keyword_weights SET weight_modifier = ? WHERE category = ? AND keyword = ?`)
	if _, err := q.ext.ExecContext(ctx, update, entry.WeightModifier, category, keyword); err != nil {
		return nil, wrap("store keyword weight", err)
	}
	return &entry, nil
}

// ListWeights returns every keyword weight
func (q *Queries) ListWeights(ctx context.Context) ([]model.WeightEntry, error) {
	var entries []model.WeightEntry
	err := sqlx.SelectContext(ctx, q.ext, &entries, `SELECT category, keyword, approvals, rejections, weight_modifier, updated_at
		FROM keyword_weights ORDER BY category, keyword`)
	if err != nil {
		return nil, wrap("list keyword weights", err)
	}
	return entries, nil
}
