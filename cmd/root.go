package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abax-solver/abax/internal/buildinfo"
	"github.com/abax-solver/abax/internal/logging"
)

// global flags
var userConfig string

const (
	PolicyKey     = "policy"
	NodeBudgetKey = "solver.node_budget"
)

var rootCmd = &cobra.Command{
	Use:   "abax",
	Short: fmt.Sprintf("abax policy analyzer (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `abax enumerates every (subject, resource) pair a rule set grants access to.
	It runs the same question through two independent strategies, a constraint
	solver and an exhaustive loop, so their answers can be checked against
	each other.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initConfig()
		logging.Init()
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.abax.yaml)")

	rootCmd.PersistentFlags().StringP("policy", "p", "",
		"Policy file with schema, entities and rules")
	_ = viper.BindPFlag(PolicyKey, rootCmd.PersistentFlags().Lookup("policy"))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(logging.LevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(logging.FormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(logging.NoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.PersistentFlags().Int("node-budget", 0, "Override the solver search node budget")
	_ = viper.BindPFlag(NodeBudgetKey, rootCmd.PersistentFlags().Lookup("node-budget"))

	viper.SetEnvPrefix("ABAX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/abax")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".abax")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}
