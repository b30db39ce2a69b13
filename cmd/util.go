package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/abax-solver/abax/internal/engine"
	"github.com/abax-solver/abax/internal/policy"
)

func loadPolicy() (*policy.Policy, error) {
	path := viper.GetString(PolicyKey)
	if path == "" {
		return nil, fmt.Errorf("policy file not specified (use --policy or set ABAX_POLICY)")
	}
	return policy.Load(path)
}

func getController() (*engine.Controller, error) {
	pol, err := loadPolicy()
	if err != nil {
		return nil, err
	}
	return engine.NewController(pol.Store, pol.Rules, log.Logger), nil
}

func buildRequest(mode, strategy string, ruleIDs []string, maxSolutions int) (engine.Request, error) {
	m, err := engine.ParseMode(mode)
	if err != nil {
		return engine.Request{}, err
	}
	s, err := engine.ParseStrategy(strategy)
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Request{
		Mode:         m,
		Strategy:     s,
		RuleIDs:      ruleIDs,
		MaxSolutions: maxSolutions,
		NodeBudget:   viper.GetInt(NodeBudgetKey),
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
