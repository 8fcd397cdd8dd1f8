package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bizzlechizzle/datemine/internal/model"
	"github.com/bizzlechizzle/datemine/internal/worker"
)

var batchTimeout time.Duration

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Process many documents in parallel",
	Long: `Batch processes documents listed in a file concurrently:
- One JSON document per line ({"text": ..., "source_id": ..., "locid": ...})
- A bare URL per line is fetched as a web page
- Fetches are rate limited per domain
- Each document is processed independently; failures are reported per line

Example:
  datemine batch docs.jsonl
  datemine batch urls.txt --concurrency 8 --rps 0.5 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().Float64("rps", 0, "fetches per second per domain (default from config)")
	batchCmd.Flags().Int("burst", 0, "fetch burst per domain (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("rate_limiting.requests_per_second", batchCmd.Flags().Lookup("rps"))
	_ = viper.BindPFlag("rate_limiting.burst_size", batchCmd.Flags().Lookup("burst"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	docs, err := worker.ReadDocumentsFromFile(file)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fetch := false
	for _, d := range docs {
		if d.Text == "" && d.URL != "" {
			fetch = true
			break
		}
	}
	p, err := a.pipeline(fetch)
	if err != nil {
		return err
	}

	cfg := a.cfg
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  datemine batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s (%d documents)\n", file, len(docs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Engine:       %s\n", cfg.Parser.Engine)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	results := processor.ProcessDocuments(ctx, docs)

	// Process results
	var (
		successCount int
		failureCount int
		totals       model.RunSummary
	)
	for _, result := range results {
		name := documentName(result.Document)
		if result.Summary != nil {
			totals.Extracted += result.Summary.Extracted
			totals.Duplicates += result.Summary.Duplicates
			totals.Conflicts += result.Summary.Conflicts
			totals.AutoApproved += result.Summary.AutoApproved
		}
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", red("✗"), name, result.Error)
			continue
		}

		successCount++
		s := result.Summary
		fmt.Fprintf(os.Stderr, "%s %s (%d dates, %d auto-approved", green("✓"), name, s.Extracted, s.AutoApproved)
		if n := len(s.Errors); n > 0 {
			fmt.Fprintf(os.Stderr, ", %s", yellow(fmt.Sprintf("%d span errors", n)))
		}
		fmt.Fprintf(os.Stderr, ")\n")
	}

	if jsonOut {
		lines := make([]batchLine, 0, len(results))
		for _, r := range results {
			line := batchLine{Document: documentName(r.Document), Summary: r.Summary}
			if r.Error != nil {
				line.Error = r.Error.Error()
			}
			lines = append(lines, line)
		}
		if err := printJSON(cmd.OutOrStdout(), lines); err != nil {
			return err
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Documents:      %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:        %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:       %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Extracted:      %d\n", totals.Extracted)
	fmt.Fprintf(os.Stderr, "  Duplicates:     %d\n", totals.Duplicates)
	fmt.Fprintf(os.Stderr, "  Conflicts:      %d\n", totals.Conflicts)
	fmt.Fprintf(os.Stderr, "  Auto-approved:  %d\n", totals.AutoApproved)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d documents failed", failureCount, len(results))
	}
	return nil
}

// batchLine is the JSON form of one batch result
type batchLine struct {
	Document string            `json:"document"`
	Summary  *model.RunSummary `json:"summary,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func documentName(d model.Document) string {
	switch {
	case d.SourceID != "":
		return d.SourceID
	case d.URL != "":
		return d.URL
	default:
		return truncate(d.Text, 30)
	}
}
