package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abax-solver/abax/internal/core"
	"github.com/abax-solver/abax/internal/engine"
)

var (
	analyzeMode     string
	analyzeStrategy string
	analyzeRules    []string
	analyzeMax      int
	analyzeFilter   string
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Enumerate all (subject, resource) pairs the policy grants",
	Long: `Runs the policy against its entity populations and lists every pair of
subject and resource for which at least one rule grants access.

In unified mode every granted pair appears once, without the justifying rule.
In per-rule mode a pair appears once for every rule that grants it.`,
	Example: `  # All granted pairs, one line each
  abax analyze --policy policy.yaml

  # Which rule grants what, solver strategy, first 50 answers
  abax analyze --policy policy.yaml --mode per-rule --max 50

  # Only pairs touching one subject
  abax analyze --policy policy.yaml --filter 'subject == "alice"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := getController()
		if err != nil {
			return err
		}
		req, err := buildRequest(analyzeMode, analyzeStrategy, analyzeRules, analyzeMax)
		if err != nil {
			return err
		}

		var filter *vm.Program
		if analyzeFilter != "" {
			filter, err = expr.Compile(analyzeFilter, expr.Env(filterEnv{}), expr.AsBool())
			if err != nil {
				return fmt.Errorf("compiling --filter: %w", err)
			}
		}

		res, err := ctrl.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		if filter != nil {
			if res.Solutions, err = applyFilter(filter, res.Solutions); err != nil {
				return err
			}
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(res)
		return nil
	},
}

// filterEnv is the variable surface of a --filter expression.
type filterEnv struct {
	Subject  string `expr:"subject"`
	Resource string `expr:"resource"`
	Rule     string `expr:"rule"`
}

func applyFilter(prog *vm.Program, sols []core.Solution) ([]core.Solution, error) {
	out := sols[:0]
	for _, s := range sols {
		keep, err := expr.Run(prog, filterEnv{Subject: s.Subject, Resource: s.Resource, Rule: s.RuleID})
		if err != nil {
			return nil, fmt.Errorf("running --filter: %w", err)
		}
		if keep.(bool) {
			out = append(out, s)
		}
	}
	return out, nil
}

func printResult(res *engine.Result) {
	for _, w := range res.Warnings {
		log.Warn().Msg(w)
	}

	if len(res.Solutions) == 0 {
		log.Info().Msg("no granted pairs found")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	if res.Mode == engine.ModePerRule {
		t.AppendHeader(table.Row{"Rule", "Subject", "Resource"})
		for _, s := range res.Solutions {
			t.AppendRow(table.Row{bold(s.RuleID), s.Subject, s.Resource})
		}
	} else {
		t.AppendHeader(table.Row{"Subject", "Resource"})
		for _, s := range res.Solutions {
			t.AppendRow(table.Row{s.Subject, s.Resource})
		}
	}

	s := table.StyleRounded
	s.Format.Header = text.FormatDefault
	t.SetStyle(s)
	t.Render()

	fmt.Printf("%d granted pair(s) %s\n", len(res.Solutions),
		faint(fmt.Sprintf("(%s strategy, %s mode, %s)", res.Strategy, res.Mode, res.Elapsed.Round(time.Millisecond))))
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "unified", "Result shape (unified, per-rule)")
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "solver", "Evaluation strategy (solver, loop)")
	analyzeCmd.Flags().StringSliceVar(&analyzeRules, "rules", nil, "Restrict the run to these rule ids")
	analyzeCmd.Flags().IntVar(&analyzeMax, "max", -1, "Solution cap per run, or per rule in per-rule mode (-1 for all)")
	analyzeCmd.Flags().StringVar(&analyzeFilter, "filter", "", "Expression to filter solutions, e.g. 'subject == \"alice\"'")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the full result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
