// Package resolve elects primaries among duplicate extractions and flags
// conflicts against accepted timeline facts.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/model"
)

// GroupRepo reads and rewrites the members of one dedup group. Callers run it
// inside a transaction that serialises writers of the same group.
type GroupRepo interface {
	ListGroup(ctx context.Context, key model.GroupKey) ([]*model.Extraction, error)
	UpdateExtraction(ctx context.Context, e *model.Extraction) error
}

// GroupResult is the state of a group after resolution
type GroupResult struct {
	Primary *model.Extraction
	Members []*model.Extraction
	Changed int // Members whose dedup fields were rewritten
}

// IsDuplicate reports whether id ended up as a non-primary member
func (r *GroupResult) IsDuplicate(id string) bool {
	return r.Primary != nil && r.Primary.ID != id && len(r.Members) > 1
}

// Deduplicator keeps exactly one primary per (location, date, category) group
type Deduplicator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewDeduplicator creates a deduplicator
func NewDeduplicator(logger *zap.Logger, now func() time.Time) *Deduplicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Deduplicator{logger: logger, now: now}
}

// Resolve re-elects the primary of the group. The winner is the member with
// the highest overall confidence; ties go to the earliest created, then the
// smallest id.
func (d *Deduplicator) Resolve(ctx context.Context, repo GroupRepo, key model.GroupKey) (*GroupResult, error) {
	members, err := repo.ListGroup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", key, err)
	}
	if len(members) == 0 {
		return &GroupResult{}, nil
	}
	return d.link(ctx, repo, members, Elect(members))
}

// ForcePrimary makes primaryID the primary of its group regardless of
// confidence. A later Resolve may elect a different member again.
func (d *Deduplicator) ForcePrimary(ctx context.Context, repo GroupRepo, key model.GroupKey, primaryID string) (*GroupResult, error) {
	members, err := repo.ListGroup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", key, err)
	}

	var primary *model.Extraction
	for _, m := range members {
		if m.ID == primaryID {
			primary = m
			break
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("extraction %s in group %s: %w", primaryID, key, model.ErrNotFound)
	}
	return d.link(ctx, repo, members, primary)
}

// Elect returns the member that should be primary, or nil for an empty group
func Elect(members []*model.Extraction) *model.Extraction {
	if len(members) == 0 {
		return nil
	}
	ordered := append([]*model.Extraction(nil), members...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return precedes(ordered[i], ordered[j])
	})
	return ordered[0]
}

// precedes is the total order used for election
func precedes(a, b *model.Extraction) bool {
	if a.OverallConfidence != b.OverallConfidence {
		return a.OverallConfidence > b.OverallConfidence
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (d *Deduplicator) link(ctx context.Context, repo GroupRepo, members []*model.Extraction, primary *model.Extraction) (*GroupResult, error) {
	now := d.now().UTC()
	result := &GroupResult{Primary: primary, Members: members}

	var merged model.StringList
	for _, m := range members {
		if m.ID != primary.ID {
			merged = append(merged, m.ID)
		}
	}
	sort.Strings(merged)

	for _, m := range members {
		changed := false
		if m.ID == primary.ID {
			if !m.IsPrimary || m.DuplicateOfID != nil || !sameIDs(m.MergedFromIDs, merged) {
				m.IsPrimary = true
				m.DuplicateOfID = nil
				m.MergedFromIDs = append(model.StringList(nil), merged...)
				changed = true
			}
		} else if m.IsPrimary || m.DuplicateOfID == nil || *m.DuplicateOfID != primary.ID || len(m.MergedFromIDs) > 0 {
			id := primary.ID
			m.IsPrimary = false
			m.DuplicateOfID = &id
			m.MergedFromIDs = nil
			changed = true
		}

		if !changed {
			continue
		}
		m.UpdatedAt = now
		if err := repo.UpdateExtraction(ctx, m); err != nil {
			return nil, fmt.Errorf("update dedup state of %s: %w", m.ID, err)
		}
		result.Changed++
	}

	if len(members) > 1 {
		d.logger.Debug("resolved duplicate group",
			zap.String("primary", primary.ID),
			zap.Int("members", len(members)),
			zap.Int("changed", result.Changed),
		)
	}
	return result, nil
}

func sameIDs(a, b model.StringList) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
