package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/config"
	"github.com/lazypower/revise/internal/export"
	"github.com/lazypower/revise/internal/schedule"
	"github.com/spf13/cobra"
)

var (
	userFlag   string
	startFlag  string
	allFlag    bool
	topicFlag  string
	dateFlag   string
	outputFlag string
	forceFlag  bool
)

func init() {
	addCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")
	addCmd.Flags().StringVarP(&startFlag, "start", "s", "", "Start date YYYY-MM-DD (default today, UTC)")
	addCmd.MarkFlagRequired("user")

	agendaCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")
	agendaCmd.Flags().BoolVar(&allFlag, "all", false, "Include past reviews, in insertion order")
	agendaCmd.MarkFlagRequired("user")

	removeCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")
	removeCmd.Flags().StringVarP(&topicFlag, "topic", "t", "", "Topic of the review to remove")
	removeCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Date of the review to remove")
	removeCmd.MarkFlagRequired("user")
	removeCmd.MarkFlagRequired("topic")
	removeCmd.MarkFlagRequired("date")

	clearCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")
	clearCmd.MarkFlagRequired("user")

	exportCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write to file instead of stdout")
	exportCmd.MarkFlagRequired("user")

	configInitCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule <start-date>",
	Short: "Print the review dates for a start date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dates, err := schedule.Compute(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, o := range schedule.Offsets() {
			fmt.Fprintf(out, "%-4s %s\n", o, dates[i])
		}
		return nil
	},
}

// --- add command ---

var addCmd = &cobra.Command{
	Use:   "add <topic>",
	Short: "Schedule reviews of a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		start := startFlag
		if start == "" {
			start = schedule.FormatDate(time.Now())
		}
		items, err := svc.AddTopic(cmd.Context(), userFlag, strings.Join(args, " "), start)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d reviews of %q for user %s:\n", len(items), items[0].Topic, userFlag)
		for _, it := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", it.Date)
		}
		return nil
	},
}

// --- agenda command ---

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Show a user's upcoming reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		var items []agenda.Item
		if allFlag {
			items, err = svc.All(cmd.Context(), userFlag)
		} else {
			items, err = svc.Agenda(cmd.Context(), userFlag)
		}
		if err != nil {
			return err
		}
		printAgenda(cmd.OutOrStdout(), items)
		return nil
	},
}

func printAgenda(w io.Writer, items []agenda.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No agenda available")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTOPIC\tDATE")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, it.Topic, it.Date)
	}
	tw.Flush()
}

// --- remove command ---

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a scheduled review",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		n, err := svc.Remove(cmd.Context(), userFlag, agenda.Item{Topic: topicFlag, Date: dateFlag})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("no review of %q on %s for user %s", topicFlag, dateFlag, userFlag)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d review(s).\n", n)
		return nil
	},
}

// --- clear command ---

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every review for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := svc.Clear(cmd.Context(), userFlag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared agenda for user %s.\n", userFlag)
		return nil
	},
}

// --- users command ---

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List configured user IDs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Users) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No fixed user set; any user ID is accepted.")
			return nil
		}
		for _, u := range cfg.Users {
			fmt.Fprintf(cmd.OutOrStdout(), "User %s\n", u)
		}
		return nil
	},
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export upcoming reviews as an iCalendar file",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		items, err := svc.Agenda(cmd.Context(), userFlag)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outputFlag != "" {
			f, err := os.Create(outputFlag)
			if err != nil {
				return fmt.Errorf("create %s: %w", outputFlag, err)
			}
			defer f.Close()
			w = f
		}
		return export.WriteICS(w, userFlag, items, time.Now())
	},
}

// --- config command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil && !forceFlag {
			return fmt.Errorf("%s exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		cfg := config.Default()
		if err := config.Save(path, &cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}
