package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Avacaato/loop-orchestration/internal/completion"
	"github.com/Avacaato/loop-orchestration/internal/config"
	"github.com/Avacaato/loop-orchestration/internal/engine"
	"github.com/Avacaato/loop-orchestration/internal/journal"
	"github.com/Avacaato/loop-orchestration/internal/phase"
	"github.com/Avacaato/loop-orchestration/internal/project"
	"github.com/Avacaato/loop-orchestration/internal/prompts"
	"github.com/Avacaato/loop-orchestration/internal/providers"
	"github.com/Avacaato/loop-orchestration/internal/session"
	"github.com/Avacaato/loop-orchestration/internal/skills"
	"github.com/Avacaato/loop-orchestration/internal/tools"
)

// app holds everything a command needs that does not depend on a
// particular session.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	prompts *prompts.Registry
	manager *phase.Manager
	store   *session.Store
	journal *journal.DB // nil when disabled or unavailable
}

func newApp(ctx context.Context) (*app, error) {
	cfgMgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel)

	p := prompts.Builtin()
	reg, err := phase.Default(p)
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(cfg.SessionDir, reg.Names(), logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		prompts: p,
		manager: phase.NewManager(reg),
		store:   store,
	}
	if cfg.JournalPath != "" {
		db, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			logger.Warn("journal unavailable, continuing without it", "path", cfg.JournalPath, "error", err)
		} else {
			a.journal = db
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		a.journal.Close()
	}
}

// dispatcher builds the skill dispatcher for a session's project.
func (a *app) dispatcher(sess *session.Session) (*skills.Dispatcher, error) {
	gen, err := providers.New(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	toolReg, err := tools.NewDefaultRegistry(sess.ProjectRoot, a.cfg.CommandTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open project root %s: %w", sess.ProjectRoot, err)
	}
	verify, err := project.VerifyCommand(sess.ProjectRoot, a.cfg.VerifyCommand)
	if err != nil {
		return nil, err
	}
	rules, err := project.LoadRules(sess.ProjectRoot)
	if err != nil {
		return nil, err
	}
	return skills.NewDispatcher(a.manager, gen,
		skills.DefaultBindings(a.prompts),
		skills.NewReviewer(a.prompts),
		skills.WithTools(toolReg),
		skills.WithVerifyCommand(verify),
		skills.WithRules(rules),
	)
}

// newEngine builds the loop engine for a session, reporting progress to
// the terminal.
func (a *app) newEngine(sess *session.Session) (*engine.Engine, error) {
	d, err := a.dispatcher(sess)
	if err != nil {
		return nil, err
	}
	hooks := engine.Hooks{engine.LoggerHook{L: a.logger}, newProgressHook(os.Stdout, a.cfg.MaxIterations)}
	if a.journal != nil {
		hooks = append(hooks, journal.NewHook(a.journal, a.logger))
	}
	return engine.New(engine.Options{
		Store:      a.store,
		Manager:    a.manager,
		Dispatcher: d,
		Detector: completion.Detector{
			Implicit:      a.cfg.ImplicitCompletion,
			MinConfidence: a.cfg.MinConfidence,
		},
		MaxIterations: a.cfg.MaxIterations,
		Hooks:         hooks,
		Logger:        a.logger,
	})
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
