package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abax-solver/abax/internal/engine"
)

var whyRuleFilter string

var whyCmd = &cobra.Command{
	Use:   "why <subject> <resource>",
	Short: "Explain why a pair is granted (or denied) access",
	Long: `Evaluates every rule against one concrete (subject, resource) pair and
prints a per-node trace of the predicate evaluation. Useful for debugging
why a pair shows up in the result set, or why it does not.`,
	Example: `  # Why does alice get doc1?
  abax why alice doc1 --policy policy.yaml

  # Why is the 'owner' rule not matching?
  abax why alice doc1 --policy policy.yaml --rule owner`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := getController()
		if err != nil {
			return err
		}

		traces, err := ctrl.Explain(args[0], args[1])
		if err != nil {
			return err
		}

		printTraces(args[0], args[1], traces)
		return nil
	},
}

func printTraces(subject, resource string, traces []engine.RuleTrace) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("\n%s for pair: %s / %s\n",
		bold("Evaluation Trace"),
		bold(subject),
		bold(resource))

	fmt.Println(faint("---------------------------------------------------"))

	granted := 0
	for _, tr := range traces {
		if whyRuleFilter != "" && tr.RuleID != whyRuleFilter {
			continue
		}

		icon := red("✖")
		if tr.Granted {
			icon = green("✔")
			granted++
		}
		if tr.Skipped {
			icon = yellow("–")
		}

		fmt.Printf("%s %s", icon, bold(tr.RuleID))
		if tr.Description != "" {
			fmt.Printf(" %s", faint(truncate(tr.Description, 64)))
		}
		fmt.Println()

		if tr.Skipped {
			fmt.Printf("  %s %s\n", yellow("skipped:"), tr.SkipReason)
			continue
		}

		for _, step := range tr.Steps {
			indent := strings.Repeat("  ", step.Depth+1)
			mark := red("✖")
			switch step.Outcome {
			case engine.OutcomeTrue:
				mark = green("✔")
			case engine.OutcomeVacuous:
				mark = yellow("~")
			}
			fmt.Printf("%s%s %s", indent, mark, step.Label)
			if step.Detail != "" {
				fmt.Printf(" %s", cyan("["+step.Detail+"]"))
			}
			fmt.Println()
		}
	}

	fmt.Println(faint("---------------------------------------------------"))
	if granted > 0 {
		fmt.Printf("%s %d rule(s) grant this pair\n", green("✔"), granted)
	} else {
		fmt.Printf("%s no rule grants this pair\n", red("✖"))
	}
}

func init() {
	whyCmd.Flags().StringVar(&whyRuleFilter, "rule", "", "Only show the trace for this rule id")
	rootCmd.AddCommand(whyCmd)
}
