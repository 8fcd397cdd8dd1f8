package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bizzlechizzle/datemine/internal/model"
	"github.com/bizzlechizzle/datemine/internal/review"
)

var (
	reviewer     string
	rejectReason string
	override     bool
	factID       string
	exportMin    float64
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Record review decisions",
	Long: `Review applies a human decision to an extraction. Approvals and
rejections feed the keyword weights used by later extractions.`,
}

var approveCmd = &cobra.Command{
	Use:   "approve <extraction-id>",
	Short: "Approve an extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, func(s *review.Service) (*model.Extraction, error) {
			return s.Approve(cmd.Context(), args[0], reviewer, review.ApproveOptions{Override: override})
		})
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <extraction-id>",
	Short: "Reject an extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if rejectReason == "" {
			return fmt.Errorf("--reason is required")
		}
		return decide(cmd, func(s *review.Service) (*model.Extraction, error) {
			return s.Reject(cmd.Context(), args[0], reviewer, rejectReason)
		})
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <extraction-id>",
	Short: "Turn an approved extraction into a timeline fact",
	Long: `Convert creates a timeline fact from an approved extraction, or links it
to an existing fact of the same location with --fact.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, func(s *review.Service) (*model.Extraction, error) {
			return s.Convert(cmd.Context(), args[0], reviewer, factID)
		})
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <extraction-id>",
	Short: "Undo a conversion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decide(cmd, func(s *review.Service) (*model.Extraction, error) {
			return s.Revert(cmd.Context(), args[0], reviewer)
		})
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <extraction-id>",
	Short: "Make an extraction the primary of its duplicate group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.review().MergeDuplicates(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), result.Members)
		}
		printExtractions(cmd.OutOrStdout(), result.Members)
		return nil
	},
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file.csv|->",
	Short: "Export pending extractions for bulk review",
	Long: `Export writes pending extractions to CSV. Fill in the action column
(approve or reject), a reason for rejections and optionally override, then
load the file back with 'datemine import'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		w := cmd.OutOrStdout()
		if args[0] != "-" {
			f, createErr := os.Create(args[0])
			if createErr != nil {
				return fmt.Errorf("create export file: %w", createErr)
			}
			defer func() {
				if closeErr := f.Close(); closeErr != nil && err == nil {
					err = fmt.Errorf("close export file: %w", closeErr)
				}
			}()
			w = f
		}

		n, err := a.review().ExportPendingCSV(cmd.Context(), w, exportMin)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Exported %d pending extractions\n", n)
		return nil
	},
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file.csv|->",
	Short: "Apply bulk review decisions from CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r := cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()
			r = f
		}

		result, err := a.review().ImportReviewCSV(cmd.Context(), r, reviewer)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), result)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  Approved:  %s\n", green(result.Approved))
		fmt.Fprintf(out, "  Rejected:  %s\n", red(result.Rejected))
		fmt.Fprintf(out, "  Skipped:   %d\n", result.Skipped)
		for _, rowErr := range result.Errors {
			fmt.Fprintf(out, "  %s %v\n", red("✗"), rowErr)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d rows failed", len(result.Errors))
		}
		return nil
	},
}

func decide(cmd *cobra.Command, action func(*review.Service) (*model.Extraction, error)) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := action(a.review())
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), e)
	}
	printExtraction(cmd.OutOrStdout(), e)
	return nil
}

func defaultReviewer() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func init() {
	rootCmd.AddCommand(reviewCmd, exportCmd, importCmd)
	reviewCmd.AddCommand(approveCmd, rejectCmd, convertCmd, revertCmd, mergeCmd)

	reviewCmd.PersistentFlags().StringVar(&reviewer, "reviewer", defaultReviewer(), "name recorded with the decision")
	importCmd.Flags().StringVar(&reviewer, "reviewer", defaultReviewer(), "name recorded with the decisions")
	approveCmd.Flags().BoolVar(&override, "override", false, "approve despite an unresolved conflict")
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "why the extraction is wrong")
	convertCmd.Flags().StringVar(&factID, "fact", "", "link to this existing timeline fact instead of creating one")
	exportCmd.Flags().Float64Var(&exportMin, "min-confidence", 0, "only export extractions at or above this confidence")
}
