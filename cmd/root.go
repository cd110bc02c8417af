package cmd

import (
	tomlrepo "github.com/bnema/huddle/internal/adapters/repo/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cfg := viper.New()
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "huddle",
		Short:         "huddle: random discussion groups on the team calendar",
		Long:          "huddle splits a roster into small random groups, avoids pairs that met recently, finds a slot where every member is free and books it on a shared Google calendar.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := wireApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*app = *wired
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to huddle.toml (default ~/.huddle/huddle.toml)")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
	flags.String("log-format", "text", "Log format (text|json)")
	_ = cfg.BindPFlag(tomlrepo.ConfigPathKey, flags.Lookup("config"))
	_ = cfg.BindPFlag(logLevelKey, flags.Lookup("log-level"))
	_ = cfg.BindPFlag(logFormatKey, flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newSlotsCmd(app),
		newRosterCmd(app),
		newHistoryCmd(app),
		newScheduleCmd(app),
		newSecretCmd(app),
	)

	return rootCmd
}
