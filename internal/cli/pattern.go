package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bizzlechizzle/datemine/internal/dateparse"
	"github.com/bizzlechizzle/datemine/internal/model"
)

var (
	patternCategory string
	patternDisabled bool
)

// patternCmd represents the pattern command
var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Manage custom date patterns",
	Long: `Custom patterns are regular expressions run alongside the date parser.
Named groups year, month and day are read directly; without them the whole
match is parsed as a date. A pattern that fails to compile is disabled and
its error recorded.`,
}

var patternAddCmd = &cobra.Command{
	Use:     "add <name> <regex>",
	Short:   "Add a custom pattern",
	Example: `  datemine pattern add cornerstone 'cornerstone (?:laid|dated) (?P<year>1[6-9]\d\d)' --category build_date`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		p := &model.Pattern{
			ID:        model.NewID(),
			Name:      args[0],
			Regex:     args[1],
			Enabled:   !patternDisabled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if patternCategory != "" {
			c := model.Category(patternCategory)
			if !c.Valid() {
				return fmt.Errorf("unknown category %q", patternCategory)
			}
			p.Category = &c
		}
		if _, err := dateparse.CompilePattern(*p); err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.CreatePattern(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Added pattern %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

var patternListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		patterns, err := a.store.ListPatterns(cmd.Context(), false)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), patterns)
		}
		if len(patterns) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No custom patterns.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tENABLED\tPATTERN\tLAST ERROR")
		for _, p := range patterns {
			category, lastErr := "-", ""
			if p.Category != nil {
				category = string(*p.Category)
			}
			if p.LastError != nil {
				lastErr = red(*p.LastError)
			}
			enabled := red("no")
			if p.Enabled {
				enabled = green("yes")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, category, enabled, p.Regex, lastErr)
		}
		return tw.Flush()
	},
}

var patternEnableCmd = &cobra.Command{
	Use:   "enable <pattern-id>",
	Short: "Enable a pattern after checking that it compiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPatternEnabled(cmd, args[0], true)
	},
}

var patternDisableCmd = &cobra.Command{
	Use:   "disable <pattern-id>",
	Short: "Disable a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPatternEnabled(cmd, args[0], false)
	},
}

var patternDeleteCmd = &cobra.Command{
	Use:   "delete <pattern-id>",
	Short: "Delete a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.DeletePattern(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted pattern %s\n", args[0])
		return nil
	},
}

func setPatternEnabled(cmd *cobra.Command, id string, enabled bool) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.store.GetPattern(cmd.Context(), id)
	if err != nil {
		return err
	}
	if enabled {
		if _, err := dateparse.CompilePattern(*p); err != nil {
			return err
		}
	}
	// Enabling clears the error left by a failed compile
	lastErr := p.LastError
	if enabled {
		lastErr = nil
	}
	if err := a.store.SetPatternEnabled(cmd.Context(), id, enabled, lastErr, time.Now().UTC()); err != nil {
		return err
	}

	state := "Disabled"
	if enabled {
		state = "Enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s pattern %s\n", state, p.Name)
	return nil
}

func init() {
	rootCmd.AddCommand(patternCmd)
	patternCmd.AddCommand(patternAddCmd, patternListCmd, patternEnableCmd, patternDisableCmd, patternDeleteCmd)

	patternAddCmd.Flags().StringVar(&patternCategory, "category", "", "category assigned when the classifier finds none")
	patternAddCmd.Flags().BoolVar(&patternDisabled, "disabled", false, "add the pattern disabled")
}
