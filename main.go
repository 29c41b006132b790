package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/lpernett/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dayloom/dayloom/config"
	"github.com/dayloom/dayloom/handlers"
	"github.com/dayloom/dayloom/timeline"
	"github.com/dayloom/dayloom/utils"
)

const dateLayout = "2006-01-02"

// Load environment variables from .env before any config is read.
func init() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	rootCmd := &cobra.Command{
		Use:   "dayloom",
		Short: "Dayloom - screen activity timeline engine",
		Long: `Dayloom turns screen recordings and window telemetry into a timeline of
activity cards and productivity statistics.

Capture clients connect over websocket and stream window samples plus
completed video segments; the engine samples frames, asks a multimodal
model what happened, validates the result against ground-truth telemetry,
and rolls the card timeline into reports.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd(), reportCmd(), recallCmd(), checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the capture intake server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store := utils.NewCardStore(cfg)
			defer store.Close()

			pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelPing()
			if err := store.Ping(pingCtx); err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			zap.L().Info("Connected to card store", zap.String("addr", cfg.RedisAddr))

			provider, err := utils.NewCompletionClient(cfg)
			if err != nil {
				return err
			}

			memCtx, cancelMem := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancelMem()
			memory, err := utils.NewActivityMemory(memCtx, cfg, provider)
			if err != nil {
				zap.L().Warn("Activity memory unavailable, continuing without it", zap.Error(err))
				memory = nil
			}

			cards := handlers.InitCardsHandler(provider, store, memory)
			defer cards.Close()

			deps := &handlers.Deps{
				Config:   cfg,
				Sampler:  utils.NewFrameSampler(cfg.MaxFrames),
				Provider: provider,
				Store:    store,
				Cards:    cards,
				AppNames: handlers.NewAppNameTable(),
			}

			http.HandleFunc("/capture", func(w http.ResponseWriter, r *http.Request) {
				handlers.HandleCaptureSession(w, r, deps)
			})
			http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				fmt.Fprintln(w, "ok")
			})

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			serverErr := make(chan error, 1)
			go func() {
				zap.L().Info("Starting capture intake server", zap.String("addr", cfg.ListenAddr))
				serverErr <- http.ListenAndServe(cfg.ListenAddr, nil)
			}()

			select {
			case <-stop:
				zap.L().Info("Shutting down")
				return nil
			case err := <-serverErr:
				return fmt.Errorf("server exited: %w", err)
			}
		},
	}
}

func reportCmd() *cobra.Command {
	var (
		dateFlag  string
		startFlag string
		endFlag   string
		topFlag   int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print productivity statistics for a date or range",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := resolveRange(dateFlag, startFlag, endFlag)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store := utils.NewCardStore(cfg)
			defer store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			report, err := timeline.NewCollector(store).Collect(ctx, start, end, topFlag)
			if err != nil {
				return err
			}

			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "single day (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&startFlag, "start", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endFlag, "end", "", "range end (YYYY-MM-DD)")
	cmd.Flags().IntVar(&topFlag, "top", 5, "number of applications in the ranking")
	return cmd
}

func recallCmd() *cobra.Command {
	var topFlag int

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Search past activity by meaning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			provider, err := utils.NewCompletionClient(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			memory, err := utils.NewActivityMemory(ctx, cfg, provider)
			if err != nil {
				return err
			}
			if memory == nil {
				return fmt.Errorf("activity memory is not configured (set PINECONE_INDEX)")
			}

			matches, err := memory.Recall(ctx, args[0], topFlag)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Println("No matching activity found.")
				return nil
			}
			for _, match := range matches {
				fmt.Println("-", match)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topFlag, "top", 5, "number of matches to return")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the completion endpoint is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			provider, err := utils.NewCompletionClient(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			reply, err := provider.CheckConnection(ctx)
			if err != nil {
				return fmt.Errorf("connection check failed: %w", err)
			}
			color.Green("Connection OK (model: %s)", cfg.Model)
			fmt.Println("Reply:", reply)
			return nil
		},
	}
}

func resolveRange(dateFlag, startFlag, endFlag string) (time.Time, time.Time, error) {
	if dateFlag != "" && (startFlag != "" || endFlag != "") {
		return time.Time{}, time.Time{}, fmt.Errorf("--date cannot be combined with --start/--end")
	}

	if dateFlag != "" {
		day, err := time.ParseInLocation(dateLayout, dateFlag, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --date: %w", err)
		}
		return day, day, nil
	}

	if startFlag != "" || endFlag != "" {
		if startFlag == "" || endFlag == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("--start and --end must be given together")
		}
		start, err := time.ParseInLocation(dateLayout, startFlag, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
		end, err := time.ParseInLocation(dateLayout, endFlag, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("--end is before --start")
		}
		return start, end, nil
	}

	today := time.Now()
	return today, today, nil
}

func printReport(report *timeline.Report) {
	heading := color.New(color.Bold)
	dim := color.New(color.Faint)

	rangeText := report.StartDate.Format(dateLayout)
	if !report.EndDate.Equal(report.StartDate) {
		rangeText += " ~ " + report.EndDate.Format(dateLayout)
	}
	heading.Printf("Dayloom report  %s\n\n", rangeText)

	fmt.Printf("Total time:      %s\n", timeline.FormatDuration(report.TotalMinutes))
	fmt.Printf("Avg score:       %.1f\n", report.AvgProductivity)
	fmt.Printf("Deep work:       %s\n", timeline.FormatDuration(report.DeepWorkMinutes))
	fmt.Printf("Activities:      %d\n", report.ActivityCount)

	if len(report.CategoryDistribution) > 0 {
		heading.Println("\nCategories")
		for _, slice := range report.CategoryDistribution {
			fmt.Printf("  %-14s %s\n", slice.Name, timeline.FormatDuration(int(slice.Minutes)))
		}
	}

	if len(report.TopApplications) > 0 {
		heading.Println("\nTop applications")
		for _, app := range report.TopApplications {
			fmt.Printf("  %-24s %-8s %5.1f%%\n", app.Name, timeline.FormatDuration(int(app.Minutes)), app.Percentage)
		}
	}

	heading.Println("\nWeekly trend")
	for _, day := range report.WeeklyTrend {
		fmt.Printf("  %s %-9s %-8s score %.1f\n", day.Date, day.Weekday, timeline.FormatDuration(int(day.Minutes)), day.Score)
	}

	if len(report.Activities) > 0 {
		heading.Println("\nActivities")
		for _, entry := range report.Activities {
			window := entry.Start
			if entry.End != "" {
				window += "-" + entry.End
			}
			fmt.Printf("  %-11s [%s] %s", window, entry.Category, entry.Title)
			if entry.MainApp != "" {
				dim.Printf("  (%s)", entry.MainApp)
			}
			fmt.Println()
		}
	}
}
