package review

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvHeader is the bulk review layout. Reviewers fill in action (approve,
// reject or blank), reason and optionally override.
var csvHeader = []string{
	"extraction_id", "locid", "source_id", "category", "date_display",
	"date_start", "overall_confidence", "conflict_event_id", "raw_text",
	"sentence", "action", "reason", "override",
}

// ExportPendingCSV writes every pending extraction with at least
// minConfidence to w and returns how many rows were written
func (s *Service) ExportPendingCSV(ctx context.Context, w io.Writer, minConfidence float64) (int, error) {
	rows, err := s.Pending(ctx, minConfidence, 0)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range rows {
		record := []string{
			e.ID,
			deref(e.LocID),
			e.SourceID,
			string(e.Category),
			e.DateDisplay,
			e.DateStart,
			strconv.FormatFloat(e.OverallConfidence, 'f', 3, 64),
			deref(e.ConflictEventID),
			e.RawText,
			e.Sentence,
			"", "", "",
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("write csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(rows), nil
}

// RowError is one CSV row that could not be applied
type RowError struct {
	Line int    `json:"line"`
	ID   string `json:"extraction_id"`
	Err  error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.ID, e.Err)
}

// Unwrap returns the cause
func (e RowError) Unwrap() error {
	return e.Err
}

// ImportResult summarises a bulk review import
type ImportResult struct {
	Approved int        `json:"approved"`
	Rejected int        `json:"rejected"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ImportReviewCSV applies the decisions in r as reviewer. Rows with a blank
// action are skipped. A failing row is recorded and the import continues;
// each applied row is its own transaction.
func (s *Service) ImportReviewCSV(ctx context.Context, r io.Reader, reviewer string) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"extraction_id", "action"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header: missing column %q", required)
		}
	}
	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &ImportResult{}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return result, fmt.Errorf("read csv: %w", err)
			}
			result.Errors = append(result.Errors, RowError{Line: perr.Line, Err: err})
			continue
		}
		line, _ := cr.FieldPos(0)

		id := field(record, "extraction_id")
		action := strings.ToLower(field(record, "action"))
		if action == "" {
			result.Skipped++
			continue
		}
		if id == "" {
			result.Errors = append(result.Errors, RowError{Line: line, Err: errors.New("missing extraction_id")})
			continue
		}

		switch action {
		case "approve":
			override, _ := strconv.ParseBool(field(record, "override"))
			if _, err := s.Approve(ctx, id, reviewer, ApproveOptions{Override: override}); err != nil {
				result.Errors = append(result.Errors, RowError{Line: line, ID: id, Err: err})
				continue
			}
			result.Approved++
		case "reject":
			reason := field(record, "reason")
			if reason == "" {
				result.Errors = append(result.Errors, RowError{Line: line, ID: id, Err: errors.New("reject requires a reason")})
				continue
			}
			if _, err := s.Reject(ctx, id, reviewer, reason); err != nil {
				result.Errors = append(result.Errors, RowError{Line: line, ID: id, Err: err})
				continue
			}
			result.Rejected++
		default:
			result.Errors = append(result.Errors, RowError{Line: line, ID: id, Err: fmt.Errorf("unknown action %q", action)})
		}
	}
	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
