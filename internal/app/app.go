package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/sirprodigle/navfix/internal/config"
	"github.com/sirprodigle/navfix/internal/fsys"
	"github.com/sirprodigle/navfix/internal/gitmove"
	"github.com/sirprodigle/navfix/internal/logger"
	"github.com/sirprodigle/navfix/internal/report"
	"github.com/sirprodigle/navfix/internal/resolver"
	"github.com/sirprodigle/navfix/internal/rewriter"
	"github.com/sirprodigle/navfix/internal/validator"
	"github.com/sirprodigle/navfix/internal/watcher"
)

// ErrContentRootMissing is returned before anything is touched when the
// content root does not exist.
var ErrContentRootMissing = errors.New("content root does not exist")

type App struct {
	config *config.Config
	afs    afero.Fs
	logger *logger.Logger
}

type Option func(*App)

// WithFilesystem runs the app against afs instead of the real disk.
func WithFilesystem(afs afero.Fs) Option {
	return func(a *App) {
		a.afs = afs
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(log *logger.Logger) Option {
	return func(a *App) {
		a.logger = log
	}
}

func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		config: cfg,
		afs:    afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		loggerOpts := []logger.Option{logger.WithColor(!cfg.NoColor)}
		if cfg.TermWidth > 0 {
			loggerOpts = append(loggerOpts, logger.WithTerminalWidth(cfg.TermWidth))
		}
		a.logger = logger.New(cfg.Verbose, loggerOpts...)
	}
	return a
}

// Run fixes the content tree once, or keeps fixing it in watch mode.
func (a *App) Run(ctx context.Context) error {
	root, err := a.contentRoot()
	if err != nil {
		a.logger.Error("%v", err)
		return err
	}
	a.logger.Config(root, a.config.DryRun, a.config.Git, a.config.Watch, a.config.Concurrency)

	if a.config.Watch {
		return a.runWatchMode(ctx, root)
	}

	if _, err := a.Fix(ctx, root); err != nil {
		a.logger.Error("%v", err)
		return err
	}
	return nil
}

// Fix runs the resolver and then the rewriter over root and prints what
// changed. Moves made before a resolver failure are printed before the error
// is returned.
func (a *App) Fix(ctx context.Context, root string) (*report.Report, error) {
	tree, mover, err := a.prepare(root)
	if err != nil {
		return nil, err
	}

	a.logger.Plain("Fixing MkDocs structure in %s", root)
	if a.config.DryRun {
		a.logger.Info("Dry run: changes are computed in memory and not written")
	}

	rep := report.New(root, a.config.DryRun)

	moves, err := resolver.Resolve(ctx, tree, root, resolver.Options{
		Mover:  mover,
		Logger: a.logger,
	})
	rep.AddMoves(moves)
	a.printMoves(root, moves)
	if err != nil {
		return rep, err
	}

	updated, err := rewriter.Rewrite(ctx, tree, root, rewriter.Options{
		Concurrency: a.config.Concurrency,
		Logger:      a.logger,
	})
	rep.AddUpdated(updated)
	a.printUpdated(root, updated)
	if err != nil {
		return rep, err
	}

	a.logger.Summary(len(moves), len(updated))
	return rep, a.writeReport(rep)
}

// Validate reports broken links under the content root. Finding any is an
// error.
func (a *App) Validate(ctx context.Context) error {
	root, err := a.contentRoot()
	if err != nil {
		a.logger.Error("%v", err)
		return err
	}

	a.logger.Plain("Validating links in %s", root)
	broken, err := validator.Validate(ctx, fsys.New(a.afs), root, validator.Options{
		Concurrency: a.config.Concurrency,
		Logger:      a.logger,
	})
	if err != nil {
		a.logger.Error("%v", err)
		return err
	}

	for _, b := range broken {
		a.logger.BrokenLink(relTo(root, b.File), b.Line, b.Link, b.Reason)
	}

	rep := report.New(root, false)
	rep.AddBrokenLinks(broken)
	if err := a.writeReport(rep); err != nil {
		a.logger.Error("%v", err)
		return err
	}

	if len(broken) > 0 {
		err := fmt.Errorf("found %d broken links", len(broken))
		a.logger.Error("%v", err)
		return err
	}
	a.logger.Success("All links are valid")
	return nil
}

func (a *App) runWatchMode(ctx context.Context, root string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if _, err := a.Fix(ctx, root); err != nil {
		a.logger.Error("%v", err)
	}

	a.logger.StartSection("Watch Mode")
	w, err := watcher.New(func(ctx context.Context) error {
		_, err := a.Fix(ctx, root)
		return err
	}, a.config.Debounce, a.logger)
	if err != nil {
		a.logger.Error("Failed to create watcher: %v", err)
		return err
	}
	defer w.Close()

	if err := w.AddDirectory(root); err != nil {
		a.logger.Error("Failed to add directory to watcher: %v", err)
		return fmt.Errorf("failed to add directories to watcher: %w", err)
	}
	a.logger.Watch(root)

	err = w.Run(ctx)
	a.logger.Shutdown()
	return err
}

// prepare picks the tree the passes work on and how moves happen. A dry run
// works on an in-memory copy; --git routes moves through the git index.
func (a *App) prepare(root string) (fsys.FS, resolver.Mover, error) {
	if a.config.DryRun {
		snapshot, err := fsys.Snapshot(a.afs, root)
		if err != nil {
			return nil, nil, err
		}
		return snapshot, snapshot, nil
	}

	tree := fsys.New(a.afs)
	if !a.config.Git {
		return tree, tree, nil
	}
	if _, ok := a.afs.(*afero.OsFs); !ok {
		a.logger.Warn("Git-aware moves need the real filesystem, moving without git")
		return tree, tree, nil
	}

	mover, err := gitmove.Open(tree, root, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("Moving tracked files through the git index of %s", mover.Root())
	return mover, mover, nil
}

func (a *App) contentRoot() (string, error) {
	root, err := a.config.ContentRoot()
	if err != nil {
		return "", fmt.Errorf("resolve content root: %w", err)
	}
	isDir, err := afero.IsDir(a.afs, root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", root, err)
	}
	if !isDir {
		return "", fmt.Errorf("%w: %s", ErrContentRootMissing, root)
	}
	return root, nil
}

func (a *App) printMoves(root string, moves []resolver.Move) {
	if len(moves) == 0 {
		a.logger.Plain("No duplicate entries found that need fixing")
		return
	}
	a.logger.Plain("Files reorganized:")
	for _, m := range moves {
		a.logger.Moved(relTo(root, m.Source), relTo(root, m.Destination))
	}
}

func (a *App) printUpdated(root string, updated []string) {
	if len(updated) == 0 {
		a.logger.Plain("No references needed updating")
		return
	}
	a.logger.Plain("References updated:")
	for _, path := range updated {
		a.logger.Updated(relTo(root, path))
	}
}

func (a *App) writeReport(rep *report.Report) error {
	if a.config.Report == "" {
		return nil
	}
	if err := rep.WriteFile(a.config.Report); err != nil {
		return err
	}
	a.logger.Debug("Report written to %s", a.config.Report)
	return nil
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
