package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var extractionColumns = []string{
	"extraction_id", "source_type", "source_id", "locid", "subid",
	"raw_text", "sentence", "sentence_offset",
	"date_start", "date_end", "date_precision", "date_display", "date_edtf", "date_sort",
	"category", "category_confidence", "category_keywords", "keyword_distance",
	"sentence_position", "source_age_days", "overall_confidence",
	"article_date", "relative_expression", "century_bias_applied", "original_year_ambiguous",
	"is_primary", "merged_from_ids", "duplicate_of_id",
	"conflict_event_id", "conflict_type", "conflict_resolved",
	"status", "auto_approve_reason", "reviewed_by", "reviewed_at", "rejection_reason",
	"timeline_event_id", "converted_at", "reverted_at", "reverted_by",
	"created_at", "updated_at",
}

var (
	selectExtraction = `SELECT ` + strings.Join(extractionColumns, ", ") + ` FROM extractions`

	insertExtraction = `INSERT INTO extractions (` + strings.Join(extractionColumns, ", ") +
		`) VALUES (:` + strings.Join(extractionColumns, ", :") + `)`

	updateExtraction = func() string {
		var sets []string
		for _, c := range extractionColumns {
			if c == "extraction_id" || c == "created_at" {
				continue
			}
			sets = append(sets, c+" = :"+c)
		}
		return `UPDATE extractions SET ` + strings.Join(sets, ", ") + ` WHERE extraction_id = :extraction_id`
	}()
)

// ExtractionFilter narrows ListExtractions
type ExtractionFilter struct {
	Statuses            []model.Status
	LocID               string
	SourceID            string
	MinConfidence       float64
	UnresolvedConflicts bool
	PrimaryOnly         bool
	Limit               int
	Offset              int
}

// InsertExtraction stores a new extraction
func (q *Queries) InsertExtraction(ctx context.Context, e *model.Extraction) error {
	if _, err := sqlx.NamedExecContext(ctx, q.ext, insertExtraction, e); err != nil {
		return wrap("insert extraction "+e.ID, err)
	}
	return nil
}

// UpdateExtraction rewrites every mutable column of e
func (q *Queries) UpdateExtraction(ctx context.Context, e *model.Extraction) error {
	res, err := sqlx.NamedExecContext(ctx, q.ext, updateExtraction, e)
	if err != nil {
		return wrap("update extraction "+e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update extraction %s: %w", e.ID, model.ErrNotFound)
	}
	return nil
}

// GetExtraction loads one extraction by id
func (q *Queries) GetExtraction(ctx context.Context, id string) (*model.Extraction, error) {
	var e model.Extraction
	query := q.ext.Rebind(selectExtraction + ` WHERE extraction_id = ?`)
	if err := sqlx.GetContext(ctx, q.ext, &e, query, id); err != nil {
		return nil, wrap("get extraction "+id, err)
	}
	return &e, nil
}

// ListGroup returns every extraction sharing the (location, date, category) key
func (q *Queries) ListGroup(ctx context.Context, key model.GroupKey) ([]*model.Extraction, error) {
	var rows []*model.Extraction
	query := q.ext.Rebind(selectExtraction + ` WHERE locid = ? AND date_start = ? AND category = ? ORDER BY extraction_id`)
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, key.LocID, key.DateStart, key.Category); err != nil {
		return nil, wrap("list group "+key.String(), err)
	}
	return rows, nil
}

// ListExtractions returns extractions matching f, highest confidence first
func (q *Queries) ListExtractions(ctx context.Context, f ExtractionFilter) ([]*model.Extraction, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		where = append(where, "status IN (?)")
		args = append(args, f.Statuses)
	}
	if f.LocID != "" {
		where = append(where, "locid = ?")
		args = append(args, f.LocID)
	}
	if f.SourceID != "" {
		where = append(where, "source_id = ?")
		args = append(args, f.SourceID)
	}
	if f.MinConfidence > 0 {
		where = append(where, "overall_confidence >= ?")
		args = append(args, f.MinConfidence)
	}
	if f.UnresolvedConflicts {
		where = append(where, "conflict_event_id IS NOT NULL AND conflict_resolved = ?")
		args = append(args, false)
	}
	if f.PrimaryOnly {
		where = append(where, "is_primary = ?")
		args = append(args, true)
	}

	query := selectExtraction
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY overall_confidence DESC, date_sort, extraction_id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
		if f.Offset > 0 {
			query += fmt.Sprintf(` OFFSET %d`, f.Offset)
		}
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, wrap("build extraction query", err)
	}

	var rows []*model.Extraction
	if err := sqlx.SelectContext(ctx, q.ext, &rows, q.ext.Rebind(query), args...); err != nil {
		return nil, wrap("list extractions", err)
	}
	return rows, nil
}

// Stats counts extractions by status, duplicates and unresolved conflicts
func (q *Queries) Stats(ctx context.Context) (model.Stats, error) {
	stats := model.Stats{ByStatus: make(map[model.Status]int)}

	var byStatus []struct {
		Status model.Status `db:"status"`
		N      int          `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, q.ext, &byStatus, `SELECT status, COUNT(*) AS n FROM extractions GROUP BY status`); err != nil {
		return stats, wrap("count by status", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.N
		stats.Total += row.N
	}

	query := q.ext.Rebind(`SELECT COUNT(*) FROM extractions WHERE is_primary = ?`)
	if err := sqlx.GetContext(ctx, q.ext, &stats.Duplicates, query, false); err != nil {
		return stats, wrap("count duplicates", err)
	}

	query = q.ext.Rebind(`SELECT COUNT(*) FROM extractions WHERE conflict_event_id IS NOT NULL AND conflict_resolved = ?`)
	if err := sqlx.GetContext(ctx, q.ext, &stats.UnresolvedConflicts, query, false); err != nil {
		return stats, wrap("count conflicts", err)
	}

	return stats, nil
}

// SortByCreated orders extractions oldest first, then by id. SQLite stores
// timestamps as text, so ordering by created_at is done here rather than in SQL.
func SortByCreated(rows []*model.Extraction) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}
