package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abax-solver/abax/internal/core"
)

var policyValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a policy file",
	Long: `Loads a policy file and reports whether it is well-formed: schema and
populations agree, every rule parses, and no rule references an undeclared
attribute. Also reports rules that load but would be skipped during
analysis because their predicate is structurally malformed.`,
	Example: `  abax policy validate --policy policy.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pol, err := loadPolicy()
		if err != nil {
			log.Error().Err(err).Msg("Policy is invalid.")
			return err
		}

		skippable := 0
		for _, r := range pol.Rules {
			if err := core.CheckShape(r, pol.Store); err != nil {
				log.Warn().Str("rule", r.ID).Err(err).Msg("rule would be skipped during analysis")
				skippable++
			}
		}

		log.Info().
			Int("rules", len(pol.Rules)).
			Int("subjects", pol.Store.Count(core.KindSubject)).
			Int("resources", pol.Store.Count(core.KindResource)).
			Int("skippable_rules", skippable).
			Msg("Policy is valid.")
		return nil
	},
}

func init() {
	policyCmd.AddCommand(policyValidateCmd)
}
