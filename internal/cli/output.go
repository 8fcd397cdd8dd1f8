package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func statusColor(s model.Status) string {
	switch s {
	case model.StatusAutoApproved, model.StatusUserApproved:
		return green(string(s))
	case model.StatusConverted:
		return cyan(string(s))
	case model.StatusRejected, model.StatusReverted:
		return red(string(s))
	default:
		return yellow(string(s))
	}
}

func printSummary(w io.Writer, s *model.RunSummary) {
	fmt.Fprintf(w, "%s %s\n", bold("Source:"), s.SourceID)
	fmt.Fprintf(w, "  Extracted:      %d\n", s.Extracted)
	fmt.Fprintf(w, "  Duplicates:     %d\n", s.Duplicates)
	if s.Conflicts > 0 {
		fmt.Fprintf(w, "  Conflicts:      %s\n", red(s.Conflicts))
	} else {
		fmt.Fprintf(w, "  Conflicts:      0\n")
	}
	fmt.Fprintf(w, "  Auto-approved:  %s\n", green(s.AutoApproved))
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s %s\n", red("✗"), e)
	}
}

// printExtractions renders a review queue as a table
func printExtractions(w io.Writer, rows []*model.Extraction) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No extractions.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOCATION\tCATEGORY\tDATE\tCONF\tSTATUS\tFLAGS\tTEXT")
	for _, e := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
			e.ID, e.Location(), e.Category, e.DateDisplay, e.OverallConfidence,
			statusColor(e.Status), flags(e), truncate(e.RawText, 40))
	}
	_ = tw.Flush()
}

func flags(e *model.Extraction) string {
	var f []string
	if !e.IsPrimary {
		f = append(f, "dup")
	}
	if e.HasUnresolvedConflict() {
		f = append(f, red("conflict"))
	}
	if e.CenturyBiasApplied {
		f = append(f, "bias")
	}
	if e.RelativeExpression {
		f = append(f, "relative")
	}
	if len(f) == 0 {
		return "-"
	}
	return strings.Join(f, ",")
}

func printStats(w io.Writer, s model.Stats) {
	fmt.Fprintf(w, "%s %d\n", bold("Extractions:"), s.Total)
	for _, st := range model.AllStatuses {
		fmt.Fprintf(w, "  %-15s %d\n", statusColor(st), s.ByStatus[st])
	}
	fmt.Fprintf(w, "%s %d\n", bold("Duplicates:"), s.Duplicates)
	if s.UnresolvedConflicts > 0 {
		fmt.Fprintf(w, "%s %s\n", bold("Unresolved conflicts:"), red(s.UnresolvedConflicts))
	} else {
		fmt.Fprintf(w, "%s 0\n", bold("Unresolved conflicts:"))
	}
}

func printExtraction(w io.Writer, e *model.Extraction) {
	fmt.Fprintf(w, "%s %s → %s\n", bold(e.ID), e.DateDisplay, statusColor(e.Status))
	if e.TimelineEventID != nil {
		fmt.Fprintf(w, "  timeline fact: %s\n", *e.TimelineEventID)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
