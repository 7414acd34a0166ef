package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/qepting91/threadbot/internal/browser"
	"github.com/qepting91/threadbot/internal/config"
	"github.com/qepting91/threadbot/internal/dashboard"
	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/inbox"
	"github.com/qepting91/threadbot/internal/ingest"
	"github.com/qepting91/threadbot/internal/pipeline"
	"github.com/qepting91/threadbot/internal/profile"
	"github.com/qepting91/threadbot/internal/report"
	"github.com/qepting91/threadbot/internal/storage"
	"github.com/qepting91/threadbot/internal/submit"
	"github.com/qepting91/threadbot/internal/thread"
	"github.com/qepting91/threadbot/internal/vcs"
	"github.com/qepting91/threadbot/internal/worklist"
)

const (
	// Sheets quota: 60 requests / minute / user
	sheetInterval = time.Second
	navRetryDelay = 2 * time.Second
	loginSettle   = 4 * time.Second
)

// openWorklist connects to the configured grid backend. The returned close func is never nil.
func openWorklist(ctx context.Context, cfg config.Config, spreadsheetID string, logger *slog.Logger) (*worklist.Client, func(), error) {
	switch cfg.Backend {
	case "sheets":
		grid, err := worklist.NewSheetsGrid(ctx, worklist.SheetsOptions{
			SpreadsheetID:   spreadsheetID,
			CredentialsFile: cfg.CredentialsFile,
			CredentialsJSON: cfg.CredentialsJSON,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return worklist.NewClient(grid, worklist.ClientOptions{Interval: sheetInterval}, logger), func() {}, nil
	case "xlsx":
		grid, err := worklist.NewXLSXGrid(cfg.XLSXPath)
		if err != nil {
			return nil, func() {}, err
		}
		closer := func() {
			if err := grid.Close(); err != nil {
				logger.Warn("Workbook close failed", "err", err)
			}
		}
		return worklist.NewClient(grid, worklist.ClientOptions{}, logger), closer, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown DD_WORKLIST_BACKEND: %s (use 'sheets' or 'xlsx')", cfg.Backend)
	}
}

// openSession starts the browser and signs in
func openSession(ctx context.Context, cfg config.Config, logger *slog.Logger) (domain.Session, error) {
	session, err := browser.NewSession(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	logger.Info("Session initialized", "mode", cfg.BrowserMode)

	err = browser.Login(ctx, session, browser.Credentials{
		BaseURL:    cfg.BaseURL,
		Nick:       cfg.LoginNick,
		Pass:       cfg.LoginPass,
		CookieFile: cfg.CookieFile,
		Settle:     loginSettle,
		RetryDelay: navRetryDelay,
	}, logger)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	return session, nil
}

func runSend(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// 1. Worklist
	client, closeGrid, err := openWorklist(ctx, cfg, cfg.SheetID, logger)
	if err != nil {
		return fmt.Errorf("connect worklist: %w", err)
	}
	defer closeGrid()
	list, err := worklist.EnsureMsgList(ctx, client)
	if err != nil {
		return err
	}
	logger.Info("Worklist connected", "sheet", list.Name(), "backend", cfg.Backend)

	profilesClient := client
	if cfg.Backend == "sheets" && cfg.ProfilesSheet() != cfg.SheetID {
		pc, closeProfiles, err := openWorklist(ctx, cfg, cfg.ProfilesSheet(), logger)
		if err != nil {
			logger.Warn("Profiles sheet unavailable", "err", err)
		} else {
			defer closeProfiles()
			profilesClient = pc
		}
	}
	apiCalls := func() int64 {
		n := client.APICalls()
		if profilesClient != client {
			n += profilesClient.APICalls()
		}
		return n
	}

	// 2. Browser
	session, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	// 3. Journal writer
	results := make(chan domain.TargetResult, 16)
	var writerWg sync.WaitGroup
	writer := &storage.WriterService{FilePath: cfg.JournalPath, Logger: logger}
	writerWg.Add(1)
	go writer.Start(&writerWg, results)

	// 4. Hooks
	hooks := []pipeline.Hook{&report.TableHook{Out: os.Stdout}}
	if cfg.AutoPush {
		hooks = append(hooks, vcs.NewGitHook(".", logger))
	}

	orch := pipeline.New(pipeline.Deps{
		Worklist: list,
		Profiles: profile.NewScraper(session, profile.Options{
			BaseURL:     cfg.BaseURL,
			PageTimeout: cfg.PageTimeout,
			RetryDelay:  navRetryDelay,
		}, logger),
		Threads: thread.NewLocator(session, thread.Options{
			BaseURL:    cfg.BaseURL,
			MaxPages:   cfg.MaxPostPages,
			Settle:     cfg.PageSettle,
			RetryDelay: navRetryDelay,
		}, logger),
		Submitter: submit.NewEngine(session, submit.Options{
			BaseURL:      cfg.BaseURL,
			Username:     cfg.LoginNick,
			LoadSettle:   cfg.PageSettle,
			SubmitSettle: cfg.SubmitSettle,
			ReloadSettle: cfg.ReloadSettle,
			RetryDelay:   navRetryDelay,
		}, logger),
		Lookup: func(ctx context.Context) (worklist.Lookup, error) {
			return worklist.LoadProfilesLookup(ctx, profilesClient)
		},
		History:  worklist.NewHistory(client),
		APICalls: apiCalls,
		Hooks:    hooks,
		Results:  results,
	}, pipeline.Options{
		BaseURL:    cfg.BaseURL,
		Mode:       "msg",
		MaxTargets: cfg.MaxProfiles,
		Pause:      cfg.BetweenTarget,
	}, logger)

	summary, err := orch.RunPendingTargets(ctx)
	close(results)
	writerWg.Wait()
	if err != nil {
		return err
	}
	if summary.Interrupted {
		logger.Warn("Run stopped early", "processed", summary.Processed(), "pending", summary.Pending)
	}
	return nil
}

func runCapture(ctx context.Context, cfg config.Config, mode string, logger *slog.Logger) error {
	sec := inbox.Inbox
	if mode == "activity" {
		sec = inbox.Activity
	}

	client, closeGrid, err := openWorklist(ctx, cfg, cfg.SheetID, logger)
	if err != nil {
		return fmt.Errorf("connect worklist: %w", err)
	}
	defer closeGrid()

	session, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	c := inbox.NewCapturer(session, client, inbox.Options{
		BaseURL:    cfg.BaseURL,
		ExportDir:  cfg.ExportDir,
		Settle:     cfg.PageSettle,
		RetryDelay: navRetryDelay,
	}, logger)
	n, err := c.Capture(ctx, sec)
	logger.Info("Capture finished", "section", sec.Label, "items", n, "api_calls", client.APICalls())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runDashboard(cfg config.Config, logger *slog.Logger) error {
	logger.Info("Starting Dashboard", "port", cfg.DashboardPort, "journal", cfg.JournalPath)
	return dashboard.StartServer(cfg.JournalPath, cfg.DashboardPort, logger)
}

func runImport(ctx context.Context, cfg config.Config, path string, logger *slog.Logger) error {
	rows, err := ingest.LoadRowsCSV(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	client, closeGrid, err := openWorklist(ctx, cfg, cfg.SheetID, logger)
	if err != nil {
		return fmt.Errorf("connect worklist: %w", err)
	}
	defer closeGrid()
	list, err := worklist.EnsureMsgList(ctx, client)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		logger.Info("Nothing to import", "file", path)
		return nil
	}
	if err := client.AppendRows(ctx, list.Name(), rows); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	logger.Info("Rows imported", "file", path, "rows", len(rows), "sheet", list.Name())
	return nil
}
