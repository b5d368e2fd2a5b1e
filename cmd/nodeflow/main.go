package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"nodeflow/internal/config"
	"nodeflow/internal/debug"
	"nodeflow/internal/images"
	"nodeflow/internal/storage"
	"nodeflow/internal/ui"
	"nodeflow/internal/workspace"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.Initialize(); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	versionFlag := flag.Bool("version", false, "Print version information and exit")
	dbPathFlag := flag.String("db-path", config.GetString(config.KeyStoragePath), "Path to the Nodeflow database file (default ~/.nodeflow/nodeflow.db)")
	userFlag := flag.String("user", config.GetString(config.KeyUserScope), "User scope for stored projects (blank uses the guest scope)")
	debounceFlag := flag.Duration("debounce", config.GetDuration(config.KeyAutosaveDebounce), "Quiet period before an edit is autosaved")
	historyLimitFlag := flag.Int("history-limit", config.GetInt(config.KeyHistoryLimit), "Number of undo steps kept per project")
	outputFormatFlag := flag.String("output-format", config.GetString(config.KeyOutputFormat), "Notes markdown style (rich, light, plain)")
	debugFlag := flag.Bool("debug", config.GetBool(config.KeyDebug), "Write a debug log to ~/.nodeflow/debug.log")
	flag.Parse()

	if *versionFlag {
		printVersion(os.Stdout)
		os.Exit(0)
	}

	visited := map[string]struct{}{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = struct{}{}
	})

	overrides := computeOverrides(runtimeFlags{
		dbPath:       dbPathFlag,
		user:         userFlag,
		debounce:     debounceFlag,
		historyLimit: historyLimitFlag,
		outputFormat: outputFormatFlag,
		debug:        debugFlag,
	}, visited)
	if err := config.ApplyOverrides(overrides); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := debug.Init(settings.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
	}
	defer debug.Close()

	err = run(context.Background(), settings, func(app *ui.App) programRunner {
		return tea.NewProgram(app, tea.WithAltScreen())
	}, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		debug.Close()
		os.Exit(1)
	}
}

type programRunner interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

type programFactory func(*ui.App) programRunner

// run opens storage, drives the program until it exits, then flushes the
// open project and prints the exit summary.
func run(ctx context.Context, settings config.Settings, factory programFactory, out io.Writer) (err error) {
	if factory == nil {
		return fmt.Errorf("program factory is nil")
	}
	logger := debug.Logger()
	start := time.Now()

	db, err := storage.OpenSQLite(ctx, settings.StoragePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	store, err := images.NewSQLiteStore(ctx, db.DB(), settings.CompressionLevel)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	relay := &saveRelay{}
	ws, err := workspace.New(workspace.Config{
		KV:           db,
		Images:       store,
		Namespace:    settings.Namespace,
		User:         settings.UserScope,
		Debounce:     settings.Debounce,
		HistoryLimit: settings.HistoryLimit,
		Logger:       logger,
		OnSaveState:  relay.forward,
	})
	if err != nil {
		return err
	}

	app, err := ui.NewApp(ui.Config{
		Workspace:    ws,
		OutputFormat: settings.OutputFormat,
		Version:      Version,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("initialize UI: %w", err)
	}
	prog := factory(app)
	if prog == nil {
		return fmt.Errorf("program is nil")
	}
	relay.attach(prog)
	logger.Info("nodeflow started", zap.String("db", db.Path()), zap.String("scope", storage.Scope(settings.UserScope)))

	_, runErr := prog.Run()

	session := ws.Current()
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	flushErr := ws.Close(flushCtx)
	cancel()
	if flushErr != nil {
		logger.Warn("final save failed", zap.Error(flushErr))
	}

	summary := ExitSummary{
		Version:   Version,
		StartTime: start,
		FlushErr:  flushErr,
	}
	if session != nil {
		summary.LastSave = session.SaveLabel()
	}
	if projects, perr := ws.Projects(context.WithoutCancel(ctx)); perr == nil {
		summary.Projects = len(projects)
	}
	if runErr != nil {
		return errors.Join(fmt.Errorf("run UI: %w", runErr), flushErr)
	}
	printExitSummary(out, summary)
	return nil
}

type runtimeFlags struct {
	dbPath       *string
	user         *string
	debounce     *time.Duration
	historyLimit *int
	outputFormat *string
	debug        *bool
}

// computeOverrides maps explicitly set flags onto config keys so they take
// precedence over files and the environment.
func computeOverrides(flags runtimeFlags, visited map[string]struct{}) map[string]any {
	overrides := map[string]any{}
	if flagWasExplicitlySet("db-path", visited) {
		overrides[config.KeyStoragePath] = strings.TrimSpace(*flags.dbPath)
	}
	if flagWasExplicitlySet("user", visited) {
		overrides[config.KeyUserScope] = strings.TrimSpace(*flags.user)
	}
	if flagWasExplicitlySet("debounce", visited) {
		overrides[config.KeyAutosaveDebounce] = *flags.debounce
	}
	if flagWasExplicitlySet("history-limit", visited) {
		overrides[config.KeyHistoryLimit] = *flags.historyLimit
	}
	if flagWasExplicitlySet("output-format", visited) {
		overrides[config.KeyOutputFormat] = strings.TrimSpace(*flags.outputFormat)
	}
	if flagWasExplicitlySet("debug", visited) {
		overrides[config.KeyDebug] = *flags.debug
	}
	return overrides
}

func flagWasExplicitlySet(name string, visited map[string]struct{}) bool {
	if _, ok := visited[name]; ok {
		return true
	}
	f := flag.CommandLine.Lookup(name)
	if f == nil {
		return false
	}
	return f.Value.String() != f.DefValue
}
