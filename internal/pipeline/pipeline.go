// Package pipeline turns one source document into persisted, classified,
// deduplicated and policy-checked extractions.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bizzlechizzle/datemine/internal/dateparse"
	"github.com/bizzlechizzle/datemine/internal/extract"
	"github.com/bizzlechizzle/datemine/internal/extract/adapters"
	"github.com/bizzlechizzle/datemine/internal/learning"
	"github.com/bizzlechizzle/datemine/internal/model"
	"github.com/bizzlechizzle/datemine/internal/resolve"
	"github.com/bizzlechizzle/datemine/internal/score"
	"github.com/bizzlechizzle/datemine/internal/store"
	"github.com/bizzlechizzle/datemine/internal/workflow"
)

// DocumentFetcher fills in the text of a document that only carries a URL
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, doc model.Document) (model.Document, error)
}

// Pipeline orchestrates the complete extraction process
type Pipeline struct {
	store      *store.Store
	parser     dateparse.Parser
	rules      *dateparse.RuleParser
	parserCfg  model.ParserConfig
	adapters   *adapters.Registry
	classifier *extract.Classifier
	scorer     *score.Scorer
	dedup      *resolve.Deduplicator
	conflicts  *resolve.ConflictDetector
	policy     *workflow.Policy
	learner    *learning.Learner
	fetcher    DocumentFetcher
	logger     *zap.Logger
	now        func() time.Time
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithParser replaces the rule-based date parser, e.g. with an LLM-backed one
func WithParser(parser dateparse.Parser) Option {
	return func(p *Pipeline) { p.parser = parser }
}

// WithLearner enables adaptive keyword weights
func WithLearner(l *learning.Learner) Option {
	return func(p *Pipeline) { p.learner = l }
}

// WithFetcher lets the pipeline fetch documents given only by URL
func WithFetcher(f DocumentFetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// New creates a pipeline over st with the given configuration
func New(st *store.Store, cfg *model.Config, opts ...Option) *Pipeline {
	rules := dateparse.NewRuleParser(cfg.Parser)
	p := &Pipeline{
		store:      st,
		parser:     rules,
		rules:      rules,
		parserCfg:  cfg.Parser,
		adapters:   adapters.NewRegistry(),
		classifier: extract.NewClassifier(cfg.Classifier, nil),
		scorer:     score.NewScorer(cfg.Scoring),
		policy:     workflow.NewPolicy(cfg.Approval),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.dedup = resolve.NewDeduplicator(p.logger, p.now)
	p.conflicts = resolve.NewConflictDetector(p.logger)
	return p
}

// spanOutcome records what happened to one persisted extraction
type spanOutcome struct {
	duplicate    bool
	conflict     bool
	autoApproved bool
}

// Process extracts every date in doc. Per-span failures are collected in the
// summary and do not stop the run; a document-level failure returns the
// summary together with the error.
func (p *Pipeline) Process(ctx context.Context, doc model.Document) (*model.RunSummary, error) {
	summary := &model.RunSummary{SourceID: doc.SourceID, Errors: []string{}}

	result, classifier, err := p.prepare(ctx, &doc)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("Failed to parse document: %v", err))
		p.logger.Warn("document failed",
			zap.String("source_id", doc.SourceID),
			zap.Error(err),
		)
		return summary, err
	}

	for _, skipped := range result.Skipped {
		summary.Errors = append(summary.Errors, spanError(skipped.Text, skipped.Err))
		p.logger.Warn("span skipped", zap.String("raw_text", skipped.Text), zap.Error(skipped.Err))
	}

	for _, span := range result.Spans {
		// Cancellation abandons the remaining spans; persisted ones stay valid
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("Run cancelled: %v", err))
			return summary, err
		}

		out, err := p.processSpan(ctx, doc, result.Text, span, classifier)
		if err != nil {
			summary.Errors = append(summary.Errors, spanError(span.Text, err))
			p.logger.Warn("span failed",
				zap.String("source_id", doc.SourceID),
				zap.String("raw_text", span.Text),
				zap.Error(err),
			)
			continue
		}

		summary.Extracted++
		if out.duplicate {
			summary.Duplicates++
		}
		if out.conflict {
			summary.Conflicts++
		}
		if out.autoApproved {
			summary.AutoApproved++
		}
	}

	p.logger.Info("document processed",
		zap.String("source_id", doc.SourceID),
		zap.String("locid", doc.LocID),
		zap.Int("extracted", summary.Extracted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("conflicts", summary.Conflicts),
		zap.Int("auto_approved", summary.AutoApproved),
		zap.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

func spanError(raw string, err error) string {
	return fmt.Sprintf("Failed to process date '%s': %v", raw, err)
}

// parsed is the document-level result handed to the span loop
type parsed struct {
	*dateparse.ParseResult
	Text string
}

// prepare fetches and normalises the document, loads the run's read-only
// inputs (patterns, weights) and parses every date span
func (p *Pipeline) prepare(ctx context.Context, doc *model.Document) (*parsed, *extract.Classifier, error) {
	if doc.Text == "" && doc.URL != "" {
		if p.fetcher == nil {
			return nil, nil, fmt.Errorf("document %s has no text and fetching is disabled", doc.SourceID)
		}
		fetched, err := p.fetcher.FetchDocument(ctx, *doc)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch %s: %w", doc.URL, err)
		}
		*doc = fetched
	}

	text, err := p.adapters.Normalise(doc.SourceType, doc.ContentType, doc.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("normalise %s text: %w", doc.SourceType, err)
	}

	patterns, err := p.loadPatterns(ctx)
	if err != nil {
		return nil, nil, err
	}

	var weights model.WeightTable
	if p.learner != nil {
		weights, err = p.learner.Snapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	adapter := dateparse.NewHistoricalAdapter(p.parser, p.parserCfg).WithPatterns(patterns)
	result, err := adapter.Parse(ctx, text, p.reference(*doc))
	if err != nil {
		return nil, nil, err
	}
	return &parsed{ParseResult: result, Text: text}, p.classifier.WithWeights(weights), nil
}

// reference is the date relative expressions are resolved against
func (p *Pipeline) reference(doc model.Document) time.Time {
	if doc.ArticleDate != nil {
		return doc.ArticleDate.UTC()
	}
	return p.now().UTC()
}

// loadPatterns compiles the enabled custom patterns. A pattern that does not
// compile is disabled in the store with its error and skipped.
func (p *Pipeline) loadPatterns(ctx context.Context) (*dateparse.PatternSource, error) {
	stored, err := p.store.ListPatterns(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load custom patterns: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}

	src, invalid := dateparse.NewPatternSource(stored, p.rules)
	for _, bad := range invalid {
		msg := bad.Err.Error()
		p.logger.Warn("custom pattern disabled",
			zap.String("pattern_id", bad.PatternID),
			zap.String("name", bad.Name),
			zap.Error(bad),
		)
		if err := p.store.SetPatternEnabled(ctx, bad.PatternID, false, &msg, p.now().UTC()); err != nil {
			return nil, fmt.Errorf("disable pattern %s: %w", bad.PatternID, err)
		}
	}
	return src, nil
}

// processSpan builds, stores and resolves the extraction for one span. All
// writes for the span share one transaction serialised on its dedup group,
// so a failure leaves nothing behind.
func (p *Pipeline) processSpan(ctx context.Context, doc model.Document, text string, span dateparse.EnrichedSpan, classifier *extract.Classifier) (*spanOutcome, error) {
	now := p.now().UTC()
	e := p.buildExtraction(doc, text, span, classifier, now)
	out := &spanOutcome{}

	err := p.store.WithGroupLock(ctx, e.GroupKey(), func(tx *store.Tx) error {
		if err := tx.InsertExtraction(ctx, e); err != nil {
			return err
		}

		if e.LocID != nil {
			group, err := p.dedup.Resolve(ctx, tx, e.GroupKey())
			if err != nil {
				return err
			}
			for _, m := range group.Members {
				if m.ID == e.ID {
					e = m
					break
				}
			}
			out.duplicate = group.IsDuplicate(e.ID)
		}

		fact, err := p.conflicts.Detect(ctx, tx, e)
		if err != nil {
			return err
		}
		if fact != nil {
			resolve.Flag(e, fact, now)
			if err := tx.UpdateExtraction(ctx, e); err != nil {
				return err
			}
			out.conflict = true
		}

		if reason, ok := p.policy.Eligible(e); ok {
			approved, err := workflow.AutoApprove(e, reason, now)
			if err != nil {
				return err
			}
			if err := tx.UpdateExtraction(ctx, approved); err != nil {
				return err
			}
			e = approved
			out.autoApproved = true
			p.logger.Debug("auto-approved",
				zap.String("extraction", e.ID),
				zap.String("reason", reason),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildExtraction assembles the pending record for span
func (p *Pipeline) buildExtraction(doc model.Document, text string, span dateparse.EnrichedSpan, classifier *extract.Classifier, now time.Time) *model.Extraction {
	loc := extract.Locate(text, span.Offset, len(span.Text))

	cls := classifier.Classify(loc.Sentence)
	if cls.Category == model.CategoryUnknown && span.CategoryHint.Valid() && span.CategoryHint != model.CategoryUnknown {
		cls = extract.Classification{Category: span.CategoryHint, Confidence: classifier.KeywordWeight()}
	}

	breakdown := p.scorer.Score(score.Input{
		ParserConfidence:   span.ParserConfidence,
		CategoryConfidence: cls.Confidence,
		KeywordDistance:    cls.KeywordDistance,
		Position:           loc.Position,
	})

	e := &model.Extraction{
		ID:         model.NewID(),
		SourceType: doc.SourceType,
		SourceID:   doc.SourceID,
		LocID:      model.StringPtr(doc.LocID),
		SubID:      model.StringPtr(doc.SubID),

		RawText:        span.Text,
		Sentence:       loc.Sentence,
		SentenceOffset: loc.OffsetInSentence,

		DateStart:     span.DateStart(),
		DateEnd:       span.DateEnd(),
		DatePrecision: span.Precision,
		DateDisplay:   span.Display,
		DateEDTF:      span.EDTF,
		DateSort:      span.SortKey,

		Category:           cls.Category,
		CategoryConfidence: cls.Confidence,
		CategoryKeywords:   model.StringList(cls.Keywords),
		KeywordDistance:    cls.KeywordDistance,

		SentencePosition:  loc.Position,
		OverallConfidence: breakdown.Overall,

		RelativeExpression:    span.Relative,
		CenturyBiasApplied:    span.CenturyBiasApplied,
		OriginalYearAmbiguous: span.OriginalYearAmbiguous,

		IsPrimary: true,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch {
	case doc.ArticleDate != nil:
		anchor := doc.ArticleDate.UTC()
		e.ArticleDate = model.StringPtr(anchor.Format(dateparse.DateLayout))
		age := int(now.Sub(anchor).Hours() / 24)
		e.SourceAgeDays = &age
	case span.AnchorDate != nil:
		e.ArticleDate = model.StringPtr(span.AnchorDate.Format(dateparse.DateLayout))
	}
	return e
}
