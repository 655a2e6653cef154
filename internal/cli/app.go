package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/brianndofor/texrev/internal/config"
	"github.com/brianndofor/texrev/internal/critic"
	"github.com/brianndofor/texrev/internal/document"
	"github.com/brianndofor/texrev/internal/editor"
	"github.com/brianndofor/texrev/internal/latex"
	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/brianndofor/texrev/internal/refine"
	"github.com/brianndofor/texrev/internal/store"
)

type appKey struct{}

type App struct {
	Config config.Config
	Store  *store.Store
	Critic critic.Adapter
	// Editor is nil when no API key is configured; commands that need
	// it report that instead of failing at startup.
	Editor     editor.Adapter
	GateRunner latex.Runner
	Log        *slog.Logger
}

func withApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey{}, app)
}

func getApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey{}).(*App)
	if !ok || app == nil {
		return nil, fmt.Errorf("internal error: app not initialized")
	}
	return app, nil
}

func initApp(configPath string, verbose bool) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cr critic.Adapter = critic.NewCommandAdapter(cfg.Critic)
	var ed editor.Adapter
	if cfg.Editor.APIKey != "" {
		real, err := editor.NewOpenAIAdapter(cfg.Editor)
		if err != nil {
			return nil, err
		}
		ed = real
	}
	var gateRunner latex.Runner = latex.ExecRunner{}

	if os.Getenv("TEXREV_MOCK") == "1" {
		fixtures := os.Getenv("TEXREV_MOCK_DIR")
		if fixtures == "" {
			fixtures = filepath.Join("testdata", "critic")
		}
		cr = critic.NewFakeAdapter(fixtures)
		fixturePath := os.Getenv("TEXREV_EDITOR_FIXTURE")
		if fixturePath == "" {
			fixturePath = filepath.Join("testdata", "editor", "patch.json")
		}
		ed = editor.NewFakeAdapter(fixturePath)
		gateRunner = latex.FakeRunner{}
	}

	storePath := os.Getenv("TEXREV_DB_PATH")
	if storePath == "" {
		storePath = filepath.Join(os.Getenv("HOME"), ".texrev", "texrev.db")
	}
	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		Store:      st,
		Critic:     cr,
		Editor:     ed,
		GateRunner: gateRunner,
		Log:        log,
	}, nil
}

// newRunner wires the pass runner for one run. The editor must be
// configured by this point.
func (a *App) newRunner(runID, workDir string) (*refine.Runner, error) {
	if a.Editor == nil {
		return nil, fmt.Errorf("editor not configured: set OPENAI_API_KEY or editor.api_key")
	}
	return &refine.Runner{
		Docs:           document.New(a.Store, runID, workDir),
		Ledger:         ledger.New(a.Store, runID),
		Critic:         a.Critic,
		Editor:         a.Editor,
		Gate:           latex.NewGate(a.Config.Compiler.Command, a.Config.Compiler.Args, a.GateRunner),
		Store:          a.Store,
		RunID:          runID,
		MaxBatch:       a.Config.Run.MaxBatch,
		AdapterRetries: a.Config.Run.AdapterRetries,
		AdapterTimeout: time.Duration(a.Config.Run.AdapterTimeoutSeconds) * time.Second,
		Log:            a.Log,
	}, nil
}
