package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/presentation/tui"
	"github.com/aretw0/skein/pkg/adapters/memory"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/observability"
	"github.com/aretw0/skein/pkg/ports"
	"github.com/aretw0/skein/pkg/runner"
)

// watchSessionID keeps progress across reloads when no session was named.
const watchSessionID = "watch"

// RunOptions configure an interactive play-through.
type RunOptions struct {
	Path      string
	SessionID string
	// Fresh discards any saved progress for SessionID first.
	Fresh bool
	JSON  bool
	Watch bool
}

// Run plays the story at opts.Path against in and a.Stdout.
func (a *App) Run(ctx context.Context, opts RunOptions, in io.Reader) error {
	handler := a.ioHandler(opts, in)

	var p *Persistence
	switch {
	case opts.SessionID != "":
		var err error
		if p, err = OpenStore(ctx, a.Config.Store); err != nil {
			return err
		}
	case opts.Watch:
		p = &Persistence{Store: memory.NewStore()}
		opts.SessionID = watchSessionID
	default:
		p = &Persistence{}
	}
	defer p.Close()

	if opts.Fresh && p.Store != nil {
		if err := p.Store.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to reset session %s: %w", opts.SessionID, err)
		}
	}

	if opts.Watch {
		return a.runWatch(ctx, opts, handler, p.Store)
	}
	_, err := a.play(ctx, opts, handler, p.Store)
	return err
}

func (a *App) ioHandler(opts RunOptions, in io.Reader) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(in, a.Stdout)
	}
	return runner.NewTextHandler(in, a.Stdout,
		runner.WithTextHandlerRenderer(tui.NewRenderer(a.Stdout)),
		runner.WithTextHandlerFormatter(tui.NewChoiceFormatter(a.Stdout)),
	)
}

// play compiles the script and runs it once. The engine is returned so
// callers can tell a finished story from a reader who quit.
func (a *App) play(ctx context.Context, opts RunOptions, handler runner.IOHandler, store ports.SnapshotStore) (*skein.Engine, error) {
	story, err := a.ParseFile(opts.Path)
	if err != nil {
		return nil, err
	}

	if !opts.JSON && tui.IsTerminal(a.Stdout) {
		tui.PrintBanner(a.Stdout, story.Title)
	}

	engineOpts := []skein.Option{
		skein.WithLogger(a.Logger),
		skein.WithLifecycleHooks(observability.LoggingHooks(a.Logger)),
	}
	if a.Config.AutoAdvance {
		engineOpts = append(engineOpts, skein.WithAutoAdvance(true))
	}
	engine := skein.NewEngine(story, engineOpts...)

	r := runner.NewRunner(
		runner.WithInputHandler(handler),
		runner.WithLogger(a.Logger),
		runner.WithStore(store),
		runner.WithSessionID(opts.SessionID),
	)
	return engine, r.Run(ctx, engine)
}

// runWatch replays the story whenever a file next to it changes. One handler
// serves every iteration so a single reader owns the input.
func (a *App) runWatch(ctx context.Context, opts RunOptions, handler runner.IOHandler, store ports.SnapshotStore) error {
	changes, err := watchDir(ctx, filepath.Dir(opts.Path), watchDebounce, a.Logger)
	if err != nil {
		return err
	}
	a.Logger.Info("watching for changes", "path", opts.Path, "session_id", opts.SessionID)

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		var engine *skein.Engine
		go func() {
			var err error
			engine, err = a.play(runCtx, opts, handler, store)
			done <- err
		}()

		var runErr error
		select {
		case runErr = <-done:
			cancel()
		case name, ok := <-changes:
			cancel()
			<-done
			if !ok {
				return nil
			}
			a.notify(ctx, handler, fmt.Sprintf("Change detected in %s. Reloading.", filepath.Base(name)))
			continue
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		}

		switch {
		case runErr != nil:
			a.Logger.Error("run failed", "err", runErr)
			a.notify(ctx, handler, fmt.Sprintf("Error: %v. Waiting for changes.", runErr))
		case ctx.Err() != nil:
			return nil
		case engine != nil && engine.Complete():
			a.notify(ctx, handler, "Story finished. Waiting for changes.")
		default:
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-changes:
			if !ok {
				return nil
			}
			a.notify(ctx, handler, fmt.Sprintf("Change detected in %s. Reloading.", filepath.Base(name)))
		}
	}
}

func (a *App) notify(ctx context.Context, handler runner.IOHandler, msg string) {
	if err := handler.SystemOutput(ctx, msg); err != nil {
		a.Logger.Debug("system output failed", "err", err)
	}
}
