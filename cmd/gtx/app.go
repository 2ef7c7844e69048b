package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gtxlabs/gtxips/internal/config"
	"github.com/gtxlabs/gtxips/internal/date"
	"github.com/gtxlabs/gtxips/internal/engine"
	"github.com/gtxlabs/gtxips/internal/storage"
)

// app bundles the storage and the engine services a command needs.
type app struct {
	cfg       *config.Config
	store     *storage.SQLiteStorage
	coord     *engine.Coordinator
	approvals *engine.Approvals
	treasury  *engine.Treasury
	out       io.Writer
}

// openApp loads the configuration, opens and migrates the database and wires
// the engine.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(cmd.Context()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ecfg := cfg.Engine()
	coord := engine.NewCoordinator(store, engine.NewRecalculator(store, ecfg))
	coord.OnRefresh(func(context.Context) {
		slog.Debug("Ledger state changed")
	})

	return &app{
		cfg:       cfg,
		store:     store,
		coord:     coord,
		approvals: engine.NewApprovals(coord, ecfg.Clock),
		treasury:  engine.NewTreasury(coord, ecfg.Clock),
		out:       cmd.OutOrStdout(),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// withApp runs fn with an open app and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// autoCheckpoint snapshots the database before a bulk rewrite when enabled.
func (a *app) autoCheckpoint(ctx context.Context, operation string) {
	if !a.cfg.AutoCheckpoint {
		return
	}
	manager, err := a.store.NewCheckpointManager()
	if err != nil {
		slog.Warn("Auto-checkpoint unavailable", "error", err)
		return
	}
	info, err := manager.AutoCheckpoint(ctx, operation)
	if err != nil {
		slog.Warn("Auto-checkpoint failed", "operation", operation, "error", err)
		return
	}
	slog.Info("Created auto-checkpoint", "id", info.ID)
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// parsePeriodArg parses "MM/YYYY" or "YYYY-MM".
func parsePeriodArg(s string) (date.Period, error) {
	var month, year string
	switch {
	case strings.Contains(s, "/"):
		month, year, _ = strings.Cut(s, "/")
	case strings.Contains(s, "-"):
		year, month, _ = strings.Cut(s, "-")
	default:
		return date.Period{}, fmt.Errorf("invalid period %q (want MM/YYYY)", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return date.Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	return date.ParsePeriod(month, y)
}

// parseOptionalDate parses an ISO date; an empty string yields the zero date.
func parseOptionalDate(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
