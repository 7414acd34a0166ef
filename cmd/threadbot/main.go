package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/qepting91/threadbot/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	// 1. Setup
	_ = godotenv.Load()
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 2. Graceful shutdown: the run stops after the target in progress
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := newRootCmd(&cfg, logger).ExecuteContext(ctx); err != nil {
		logger.Error("Run failed", "err", err)
		cancel()
		os.Exit(1)
	}
	cancel()
}

func newRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "threadbot",
		Short:         "Posts templated replies for pending worklist rows and captures inbox activity",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch cfg.Mode {
			case "msg", "send", "":
				return runSend(cmd.Context(), *cfg, logger)
			case "inbox", "activity":
				return runCapture(cmd.Context(), *cfg, cfg.Mode, logger)
			default:
				return fmt.Errorf("unknown mode %q (use msg, inbox or activity)", cfg.Mode)
			}
		},
	}
	root.PersistentFlags().StringVar(&cfg.Mode, "mode", cfg.Mode, "msg, inbox or activity")
	root.PersistentFlags().IntVar(&cfg.MaxProfiles, "max-profiles", cfg.MaxProfiles, "process at most this many pending rows (0 = all)")

	root.AddCommand(
		&cobra.Command{
			Use:   "send",
			Short: "Reply to every pending MsgList row",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSend(cmd.Context(), *cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "inbox",
			Short: "Copy inbox replies into the Inbox sheet",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCapture(cmd.Context(), *cfg, "inbox", logger)
			},
		},
		&cobra.Command{
			Use:   "activity",
			Short: "Copy activity notifications into the Activity sheet",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCapture(cmd.Context(), *cfg, "activity", logger)
			},
		},
		&cobra.Command{
			Use:   "dashboard",
			Short: "Serve charts of the run journal",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runDashboard(*cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "import <file.csv>",
			Short: "Append rows from a MsgList CSV export as pending targets",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImport(cmd.Context(), *cfg, args[0], logger)
			},
		},
	)
	return root
}
