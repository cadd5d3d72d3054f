package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meal-dashboard/internal/app"
	"meal-dashboard/internal/display"
	"meal-dashboard/internal/week"
)

var (
	weekNumber int
	weekYear   int
	usageDays  int
	keepDays   int

	airtableToken  string
	telegramToken  string
	telegramChatID string
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Print the meal grid of a week",
	Long:  `Print the meals planned for a week with the daily averages. Defaults to the current week.`,
	Args:  cobra.NoArgs,
	RunE:  runWeek,
}

var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send a message to the recipe bot",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the saved credentials",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which credentials are configured",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save credentials",
	Long:  `Save the given credentials. Flags that are not set keep their current value.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsSet,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show daily Airtable and Telegram call totals",
	Args:  cobra.NoArgs,
	RunE:  runMetrics,
}

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old metric records",
	Args:  cobra.NoArgs,
	RunE:  runMetricsCleanup,
}

func init() {
	weekCmd.Flags().IntVar(&weekNumber, "week", 0, fmt.Sprintf("Week number (1-%d)", week.WeeksPerYear))
	weekCmd.Flags().IntVar(&weekYear, "year", 0, "Year of the week")

	settingsSetCmd.Flags().StringVar(&airtableToken, "airtable-token", "", "Airtable personal access token")
	settingsSetCmd.Flags().StringVar(&telegramToken, "telegram-token", "", "Telegram bot token")
	settingsSetCmd.Flags().StringVar(&telegramChatID, "telegram-chat-id", "", "Telegram chat ID")
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	metricsCmd.Flags().IntVar(&usageDays, "days", 7, "Number of days to report")
	metricsCleanupCmd.Flags().IntVar(&keepDays, "days", 30, "Keep records for the last N days")
}

func runWeek(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	application := rt.newApp()
	defer application.Close()
	application.Init(ctx)

	if cmd.Flags().Changed("week") || cmd.Flags().Changed("year") {
		sel := application.Week().Selector
		if cmd.Flags().Changed("week") {
			sel.Week = weekNumber
		}
		if cmd.Flags().Changed("year") {
			sel.Year = weekYear
		}
		if err := application.SelectWeek(ctx, sel); err != nil {
			return err
		}
	}

	view := application.Week()
	out := cmd.OutOrStdout()
	fmt.Fprint(out, display.RenderWeek(view.Label, view.Days, view.Stats))
	if msgs := application.Transcript(); len(msgs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, display.RenderTranscript(msgs))
	}
	return nil
}

// immediate runs delayed actions right away; a one-shot command has no
// one waiting for the delay.
func immediate(d time.Duration, f func()) func() bool {
	f()
	return func() bool { return false }
}

func runSend(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	application := rt.newApp(app.WithScheduler(immediate))
	defer application.Close()

	if creds, saved, err := rt.settings.Load(ctx); err != nil {
		return err
	} else if saved {
		rt.creds.Set(creds)
	}

	sendErr := application.SendMessage(ctx, strings.Join(args, " "))
	fmt.Fprint(cmd.OutOrStdout(), display.RenderTranscript(application.Transcript()))
	return sendErr
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	creds, saved, err := rt.settings.Load(cmd.Context())
	if err != nil {
		return err
	}
	source := "saved settings"
	if !saved {
		creds = rt.creds.Get()
		source = "configuration"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source:           %s\n", source)
	fmt.Fprintf(out, "Messaging mode:   %s\n", rt.cfg.Telegram.Mode)
	fmt.Fprintf(out, "Airtable token:   %s\n", mask(creds.AirtableToken))
	fmt.Fprintf(out, "Telegram token:   %s\n", mask(creds.TelegramToken))
	fmt.Fprintf(out, "Telegram chat ID: %s\n", orUnset(creds.TelegramChatID))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	creds, saved, err := rt.settings.Load(ctx)
	if err != nil {
		return err
	}
	if !saved {
		creds = rt.creds.Get()
	}

	flags := cmd.Flags()
	if !flags.Changed("airtable-token") && !flags.Changed("telegram-token") && !flags.Changed("telegram-chat-id") {
		return fmt.Errorf("nothing to save: pass --airtable-token, --telegram-token or --telegram-chat-id")
	}
	if flags.Changed("airtable-token") {
		creds.AirtableToken = airtableToken
	}
	if flags.Changed("telegram-token") {
		creds.TelegramToken = telegramToken
	}
	if flags.Changed("telegram-chat-id") {
		creds.TelegramChatID = telegramChatID
	}

	if err := rt.settings.Save(ctx, creds); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings saved.")
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	usage, err := rt.metrics.GetDailyUsage(cmd.Context(), usageDays)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), display.RenderUsage(usage))
	return nil
}

func runMetricsCleanup(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	affected, err := rt.metrics.Cleanup(cmd.Context(), keepDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
