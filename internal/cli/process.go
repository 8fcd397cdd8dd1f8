package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var (
	sourceType   string
	sourceID     string
	locID        string
	subID        string
	articleDate  string
	docURL       string
	contentType  string
	timeout      time.Duration
	maxTextBytes int64
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process [file|-]",
	Short: "Extract dates from one document",
	Long: `Process reads one document and:
- Finds every date mention (full dates, ranges, decades, relative dates)
- Classifies what each date refers to from nearby keywords
- Scores confidence and stores the extraction
- Merges duplicates and flags conflicts with the location timeline
- Auto-approves confident, conflict-free extractions

The text comes from a file, from stdin ("-"), or is fetched with --url.

Example:
  datemine process notes.txt --source-id notes-1 --locid loc-42
  cat caption.txt | datemine process - --source-type image_caption --source-id img-7
  datemine process --url https://example.org/history --locid loc-42`,
	Args: cobra.MaximumNArgs(1),
}

func init() {
	// RunE is set here: runProcess reaches processCmd through cmdFlagSet,
	// which would be an initialization cycle in the literal.
	processCmd.RunE = runProcess
	rootCmd.AddCommand(processCmd)

	// Document flags
	processCmd.Flags().StringVar(&sourceType, "source-type", string(model.SourceManual), "source type (web, image_caption, document, manual)")
	processCmd.Flags().StringVar(&sourceID, "source-id", "", "identifier of the source document (default: file name or URL)")
	processCmd.Flags().StringVar(&locID, "locid", "", "location the document is about")
	processCmd.Flags().StringVar(&subID, "subid", "", "sub-location within the location")
	processCmd.Flags().StringVar(&articleDate, "article-date", "", "publication date (YYYY-MM-DD) anchoring relative dates")
	processCmd.Flags().StringVar(&docURL, "url", "", "fetch the document from this URL")
	processCmd.Flags().StringVar(&contentType, "content-type", "", "content type of the text, e.g. text/html")
	processCmd.Flags().Int64Var(&maxTextBytes, "max-bytes", 10_000_000, "max bytes read from the input file")
	processCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall processing timeout")
}

func runProcess(cmd *cobra.Command, args []string) error {
	doc, err := documentFromFlags(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipeline(doc.URL != "")
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Processing: %s (%s)\n", doc.SourceID, doc.SourceType)
		fmt.Fprintf(os.Stderr, "Engine: %s\n", a.cfg.Parser.Engine)
		fmt.Fprintln(os.Stderr)
	}

	summary, procErr := p.Process(ctx, doc)
	if summary != nil {
		if jsonOut {
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
		} else {
			printSummary(cmd.OutOrStdout(), summary)
		}
	}
	if procErr != nil {
		return fmt.Errorf("process failed: %w", procErr)
	}
	return nil
}

// documentFromFlags builds the pipeline document from the process flags and
// the optional file argument
func documentFromFlags(stdin io.Reader, args []string) (model.Document, error) {
	doc := model.Document{
		URL:         docURL,
		ContentType: contentType,
		SourceType:  model.SourceType(sourceType),
		SourceID:    sourceID,
		LocID:       locID,
		SubID:       subID,
	}
	if !doc.SourceType.Valid() {
		return doc, fmt.Errorf("unknown source type %q", sourceType)
	}

	if articleDate != "" {
		t, err := time.Parse("2006-01-02", articleDate)
		if err != nil {
			return doc, fmt.Errorf("invalid --article-date %q: want YYYY-MM-DD", articleDate)
		}
		doc.ArticleDate = &t
	}

	switch {
	case len(args) == 1 && docURL != "":
		return doc, fmt.Errorf("give either a file or --url, not both")
	case len(args) == 1:
		text, err := readInput(stdin, args[0], maxTextBytes)
		if err != nil {
			return doc, err
		}
		doc.Text = text
		if doc.SourceID == "" && args[0] != "-" {
			doc.SourceID = args[0]
		}
		if doc.ContentType == "" && (strings.HasSuffix(args[0], ".html") || strings.HasSuffix(args[0], ".htm")) {
			doc.ContentType = "text/html"
		}
	case docURL != "":
		// source id, article date and content type come from the fetch
		if !cmdFlagSet("source-type") {
			doc.SourceType = model.SourceWebPage
		}
	default:
		return doc, fmt.Errorf("nothing to process: give a file, \"-\" for stdin, or --url")
	}

	if doc.SourceID == "" && doc.URL == "" {
		return doc, fmt.Errorf("--source-id is required when reading stdin")
	}
	return doc, nil
}

func readInput(stdin io.Reader, name string, limit int64) (string, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func cmdFlagSet(name string) bool {
	f := processCmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
