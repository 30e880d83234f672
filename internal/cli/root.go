package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "revise",
	Short: "Spaced-repetition review agenda",
	Long: "Revise schedules reviews of a topic 1 week, 1 month, 3 months, 6 months and 1 year\n" +
		"after you learn it, and keeps an agenda of upcoming reviews per user.",
	SilenceUsage: true,
}

func Execute() error {
	resetFlags(rootCmd)
	return rootCmd.Execute()
}

// resetFlags restores every flag in the command tree to its default so a
// repeated in-process execution never inherits an earlier run's values.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.revise/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(agendaCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}
