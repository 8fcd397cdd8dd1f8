package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/bizzlechizzle/datemine/internal/model"
)

const (
	selectFact = `SELECT event_id, locid, subid, event_type, event_subtype,
		date_start, date_end, date_precision, date_display, date_edtf, date_sort,
		source_type, source_ref, notes, created_at, created_by
		FROM timeline_facts`

	insertFact = `INSERT INTO timeline_facts (event_id, locid, subid, event_type, event_subtype,
		date_start, date_end, date_precision, date_display, date_edtf, date_sort,
		source_type, source_ref, notes, created_at, created_by)
		VALUES (:event_id, :locid, :subid, :event_type, :event_subtype,
		:date_start, :date_end, :date_precision, :date_display, :date_edtf, :date_sort,
		:source_type, :source_ref, :notes, :created_at, :created_by)`
)

// InsertFact stores an accepted timeline fact
func (q *Queries) InsertFact(ctx context.Context, f *model.TimelineFact) error {
	if _, err := sqlx.NamedExecContext(ctx, q.ext, insertFact, f); err != nil {
		return wrap("insert timeline fact "+f.ID, err)
	}
	return nil
}

// GetFact loads one timeline fact
func (q *Queries) GetFact(ctx context.Context, id string) (*model.TimelineFact, error) {
	var f model.TimelineFact
	if err := sqlx.GetContext(ctx, q.ext, &f, q.ext.Rebind(selectFact+` WHERE event_id = ?`), id); err != nil {
		return nil, wrap("get timeline fact "+id, err)
	}
	return &f, nil
}

// DeleteFact removes a timeline fact
func (q *Queries) DeleteFact(ctx context.Context, id string) error {
	res, err := q.ext.ExecContext(ctx, q.ext.Rebind(`DELETE FROM timeline_facts WHERE event_id = ?`), id)
	if err != nil {
		return wrap("delete timeline fact "+id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete timeline fact %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// FactsByKind lists the facts of one kind at a location, oldest first
func (q *Queries) FactsByKind(ctx context.Context, locid string, kind model.EventKind) ([]model.TimelineFact, error) {
	var facts []model.TimelineFact
	query := q.ext.Rebind(selectFact + ` WHERE locid = ? AND event_type = ? AND event_subtype = ?`)
	if err := sqlx.SelectContext(ctx, q.ext, &facts, query, locid, kind.Type, kind.Subtype); err != nil {
		return nil, wrap("list timeline facts for "+locid, err)
	}
	sortFacts(facts)
	return facts, nil
}

// FactsByLocation lists every fact at a location in date order
func (q *Queries) FactsByLocation(ctx context.Context, locid string) ([]model.TimelineFact, error) {
	var facts []model.TimelineFact
	query := q.ext.Rebind(selectFact + ` WHERE locid = ? ORDER BY date_sort, event_id`)
	if err := sqlx.SelectContext(ctx, q.ext, &facts, query, locid); err != nil {
		return nil, wrap("list timeline for "+locid, err)
	}
	return facts, nil
}

func sortFacts(facts []model.TimelineFact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if !facts[i].CreatedAt.Equal(facts[j].CreatedAt) {
			return facts[i].CreatedAt.Before(facts[j].CreatedAt)
		}
		return facts[i].ID < facts[j].ID
	})
}
