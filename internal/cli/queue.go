package cli

import (
	"github.com/spf13/cobra"

	"github.com/bizzlechizzle/datemine/internal/model"
)

var (
	minConfidence float64
	queueLimit    int
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List extractions awaiting attention",
}

var queuePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending extractions, most confident first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listQueue(cmd, func(a *app) ([]*model.Extraction, error) {
			return a.review().Pending(cmd.Context(), minConfidence, queueLimit)
		})
	},
}

var queueLocationCmd = &cobra.Command{
	Use:   "location <locid>",
	Short: "List every extraction of a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listQueue(cmd, func(a *app) ([]*model.Extraction, error) {
			return a.review().ByLocation(cmd.Context(), args[0])
		})
	},
}

var queueConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List extractions that disagree with the location timeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listQueue(cmd, func(a *app) ([]*model.Extraction, error) {
			return a.review().UnresolvedConflicts(cmd.Context())
		})
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show extraction counts by status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.review().Stats(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func listQueue(cmd *cobra.Command, list func(*app) ([]*model.Extraction, error)) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rows, err := list(a)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), rows)
	}
	printExtractions(cmd.OutOrStdout(), rows)
	return nil
}

func init() {
	rootCmd.AddCommand(queueCmd, statsCmd)
	queueCmd.AddCommand(queuePendingCmd, queueLocationCmd, queueConflictsCmd)

	queuePendingCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "only show extractions at or above this confidence")
	queuePendingCmd.Flags().IntVar(&queueLimit, "limit", 50, "max rows (0 = all)")
}
