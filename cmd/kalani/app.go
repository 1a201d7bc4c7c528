package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/kalani-ai/kalani/internal/audit"
	"github.com/kalani-ai/kalani/internal/catalog"
	"github.com/kalani-ai/kalani/internal/config"
	"github.com/kalani-ai/kalani/internal/orchestrator"
	"github.com/kalani-ai/kalani/internal/registry"
	"github.com/kalani-ai/kalani/internal/rules"
	"github.com/kalani-ai/kalani/internal/state"
	"github.com/kalani-ai/kalani/internal/tracker"
	"github.com/kalani-ai/kalani/pkg/models"
)

// app wires the full engine for one CLI invocation.
type app struct {
	cfg      *config.Config
	db       *state.DB
	stream   *audit.Logger
	catalog  *catalog.Catalog
	registry *registry.Registry
	tracker  *tracker.Tracker
	orch     *orchestrator.Orchestrator
}

// openApp loads configuration, opens the state database, parses the
// worker catalog and rule set, and assembles the orchestrator.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := state.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	workers, err := config.LoadWorkers(cfg.Paths.Workers)
	if err != nil {
		db.Close()
		if os.IsNotExist(errors.Unwrap(err)) || os.IsNotExist(err) {
			return nil, fmt.Errorf("no worker catalog at %s (run 'kalani init' first)", cfg.Paths.Workers)
		}
		return nil, err
	}
	cat, err := catalog.New(workers)
	if err != nil {
		db.Close()
		return nil, err
	}

	ruleSet, err := config.LoadRules(cfg.Paths.Rules)
	if err != nil {
		db.Close()
		return nil, err
	}
	matcher, err := rules.NewMatcher(ruleSet)
	if err != nil {
		db.Close()
		return nil, err
	}

	stream, err := audit.NewLogger(cfg.LogsDir())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open audit stream: %w", err)
	}

	reg := registry.New(db)
	trk := tracker.New(reg, stream)
	orch := orchestrator.New(orchestrator.Config{
		Registry:        reg,
		Catalog:         cat,
		Matcher:         matcher,
		Tracker:         trk,
		Stream:          stream,
		Dispatcher:      orchestrator.DispatcherFunc(printDispatch),
		DefaultPriority: cfg.Delegate.DefaultPriority,
		Logger:          orchestrator.NewDebugLoggerForDataDir(cfg.Paths.DataDir),
	})

	return &app{
		cfg:      cfg,
		db:       db,
		stream:   stream,
		catalog:  cat,
		registry: reg,
		tracker:  trk,
		orch:     orch,
	}, nil
}

func (a *app) close() {
	a.orch.Close()
	a.stream.Close()
	a.db.Close()
}

// printDispatch is the CLI's execution hand-off: it prints the
// delegation instruction for the external executor. Actual execution
// happens out of process; results come back via complete/fail.
func printDispatch(_ context.Context, task *models.Task, worker *models.WorkerDefinition) error {
	fmt.Printf("Delegated to %s", color.CyanString(worker.ID))
	if len(worker.ToolPermissions) > 0 {
		fmt.Printf(" (tools: %s)", strings.Join(worker.ToolPermissions, ", "))
	}
	fmt.Println()
	return nil
}

// statusColor renders a task status with the conventional color.
func statusColor(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusPending:
		return color.YellowString(string(s))
	case models.TaskStatusInProgress:
		return color.CyanString(string(s))
	case models.TaskStatusCompleted:
		return color.GreenString(string(s))
	case models.TaskStatusFailed:
		return color.RedString(string(s))
	case models.TaskStatusBlocked:
		return color.MagentaString(string(s))
	case models.TaskStatusCancelled:
		return color.New(color.Faint).Sprint(string(s))
	default:
		return string(s)
	}
}
