package cmd

import (
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Interact with policy files",
	Long:  `Utilities for validating and inspecting abax policy files`,
}

func init() {
	rootCmd.AddCommand(policyCmd)
}
