// Package review applies human decisions to extractions: approval,
// rejection, conversion into timeline facts, revert and duplicate merging.
// Every decision runs in one store transaction together with the learning
// feedback it produces.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/learning"
	"github.com/bizzlechizzle/datemine/internal/model"
	"github.com/bizzlechizzle/datemine/internal/resolve"
	"github.com/bizzlechizzle/datemine/internal/store"
	"github.com/bizzlechizzle/datemine/internal/workflow"
)

var (
	// ErrNoLocation is returned when a fact would need a location the
	// extraction does not have
	ErrNoLocation = errors.New("extraction has no location")
	// ErrLocationMismatch is returned when linking a fact of another location
	ErrLocationMismatch = errors.New("timeline fact belongs to another location")
)

// Service runs review operations against the store
type Service struct {
	store   *store.Store
	dedup   *resolve.Deduplicator
	learner *learning.Learner // nil disables feedback
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a review service. learner may be nil.
func New(st *store.Store, learner *learning.Learner, opts ...Option) *Service {
	s := &Service{
		store:   st,
		learner: learner,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dedup = resolve.NewDeduplicator(s.logger, s.now)
	return s
}

// ApproveOptions tunes Approve
type ApproveOptions struct {
	// Override accepts the extraction despite an unresolved conflict and
	// marks the conflict resolved
	Override bool
}

// Approve records a human approval
func (s *Service) Approve(ctx context.Context, id, reviewer string, opts ApproveOptions) (*model.Extraction, error) {
	return s.decide(ctx, id, true, func(e *model.Extraction, now time.Time) (*model.Extraction, error) {
		return workflow.Approve(e, reviewer, opts.Override, now)
	})
}

// Reject records a human rejection
func (s *Service) Reject(ctx context.Context, id, reviewer, reason string) (*model.Extraction, error) {
	return s.decide(ctx, id, false, func(e *model.Extraction, now time.Time) (*model.Extraction, error) {
		return workflow.Reject(e, reviewer, reason, now)
	})
}

// decide applies a review transition and counts it as learning feedback
func (s *Service) decide(ctx context.Context, id string, approved bool,
	transition func(*model.Extraction, time.Time) (*model.Extraction, error)) (*model.Extraction, error) {
	var out *model.Extraction
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		e, err := tx.GetExtraction(ctx, id)
		if err != nil {
			return err
		}
		out, err = transition(e, s.now().UTC())
		if err != nil {
			return err
		}
		if err := tx.UpdateExtraction(ctx, out); err != nil {
			return err
		}
		if s.learner != nil {
			return s.learner.Record(ctx, tx, out, approved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.learner != nil {
		s.learner.Invalidate()
	}

	s.logger.Info("extraction reviewed",
		zap.String("id", out.ID),
		zap.String("status", string(out.Status)),
		zap.Stringp("reviewer", out.ReviewedBy),
	)
	return out, nil
}

// Convert links an approved extraction to a timeline fact. With an empty
// factID a new fact is created from the extraction; otherwise the existing
// fact is linked.
func (s *Service) Convert(ctx context.Context, id, reviewer, factID string) (*model.Extraction, error) {
	var out *model.Extraction
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		e, err := tx.GetExtraction(ctx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()

		var fact *model.TimelineFact
		if factID != "" {
			if fact, err = tx.GetFact(ctx, factID); err != nil {
				return fmt.Errorf("convert %s: %w", id, err)
			}
			if e.LocID != nil && fact.LocID != *e.LocID {
				return fmt.Errorf("convert %s to %s: %w", id, factID, ErrLocationMismatch)
			}
		} else {
			if e.LocID == nil {
				return fmt.Errorf("convert %s: %w", id, ErrNoLocation)
			}
			fact = factFrom(e, reviewer, now)
		}

		// The transition is checked before the fact is written
		if out, err = workflow.Convert(e, fact.ID, now); err != nil {
			return err
		}
		if factID == "" {
			if err := tx.InsertFact(ctx, fact); err != nil {
				return err
			}
		}
		return tx.UpdateExtraction(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("extraction converted",
		zap.String("id", out.ID),
		zap.Stringp("fact", out.TimelineEventID),
		zap.String("reviewer", reviewer),
	)
	return out, nil
}

// Revert unlinks a converted extraction. The fact is deleted only when
// this extraction created it.
func (s *Service) Revert(ctx context.Context, id, reviewer string) (*model.Extraction, error) {
	var (
		out         *model.Extraction
		factDeleted bool
	)
	err := s.store.InTx(ctx, func(tx *store.Tx) error {
		e, err := tx.GetExtraction(ctx, id)
		if err != nil {
			return err
		}
		if out, err = workflow.Revert(e, reviewer, s.now().UTC()); err != nil {
			return err
		}

		if e.TimelineEventID != nil {
			fact, err := tx.GetFact(ctx, *e.TimelineEventID)
			switch {
			case errors.Is(err, model.ErrNotFound):
			case err != nil:
				return err
			case fact.SourceRef == e.ID:
				if err := tx.DeleteFact(ctx, fact.ID); err != nil {
					return err
				}
				factDeleted = true
			}
		}
		return tx.UpdateExtraction(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("extraction reverted",
		zap.String("id", out.ID),
		zap.String("reviewer", reviewer),
		zap.Bool("fact_deleted", factDeleted),
	)
	return out, nil
}

// MergeDuplicates makes primaryID the primary of its duplicate group
func (s *Service) MergeDuplicates(ctx context.Context, primaryID string) (*resolve.GroupResult, error) {
	e, err := s.store.GetExtraction(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	if e.LocID == nil {
		return nil, fmt.Errorf("merge %s: %w", primaryID, ErrNoLocation)
	}

	key := e.GroupKey()
	var result *resolve.GroupResult
	err = s.store.WithGroupLock(ctx, key, func(tx *store.Tx) error {
		result, err = s.dedup.ForcePrimary(ctx, tx, key, primaryID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("duplicates merged",
		zap.String("primary", primaryID),
		zap.Int("members", len(result.Members)),
		zap.Int("changed", result.Changed),
	)
	return result, nil
}

// Pending lists extractions awaiting review, most confident first
func (s *Service) Pending(ctx context.Context, minConfidence float64, limit int) ([]*model.Extraction, error) {
	return s.store.ListExtractions(ctx, store.ExtractionFilter{
		Statuses:      []model.Status{model.StatusPending},
		MinConfidence: minConfidence,
		Limit:         limit,
	})
}

// ByLocation lists every extraction of a location
func (s *Service) ByLocation(ctx context.Context, locid string) ([]*model.Extraction, error) {
	return s.store.ListExtractions(ctx, store.ExtractionFilter{LocID: locid})
}

// UnresolvedConflicts lists extractions whose conflict is still open
func (s *Service) UnresolvedConflicts(ctx context.Context) ([]*model.Extraction, error) {
	return s.store.ListExtractions(ctx, store.ExtractionFilter{UnresolvedConflicts: true})
}

// Stats returns extraction counts
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	return s.store.Stats(ctx)
}

func factFrom(e *model.Extraction, reviewer string, now time.Time) *model.TimelineFact {
	kind := e.Category.Event()
	return &model.TimelineFact{
		ID:            model.NewID(),
		LocID:         *e.LocID,
		SubID:         e.SubID,
		EventType:     kind.Type,
		EventSubtype:  kind.Subtype,
		DateStart:     e.DateStart,
		DateEnd:       e.DateEnd,
		DatePrecision: e.DatePrecision,
		DateDisplay:   e.DateDisplay,
		DateEDTF:      e.DateEDTF,
		DateSort:      e.DateSort,
		SourceType:    string(e.SourceType),
		SourceRef:     e.ID,
		Notes:         e.Sentence,
		CreatedAt:     now,
		CreatedBy:     reviewer,
	}
}
