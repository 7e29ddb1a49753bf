package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/aretw0/skein/pkg/ports"
)

// Runner handles the read-choose loop of a skein engine over an IOHandler.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store is the persistence adapter for durable runs.
	// If nil, runs are ephemeral.
	Store     ports.SnapshotStore
	SessionID string

	Signals bool
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes the loop until the story completes, the input is exhausted,
// the reader quits, or ctx is cancelled. The engine must not have been
// started; Run starts it, or resumes it from the store.
//
// Input is a 1-based choice number, "reset" to replay from the top, or
// "quit"/"exit".
func (r *Runner) Run(ctx context.Context, engine *skein.Engine) error {
	if r.Signals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	handler := r.resolveHandler()
	sessions := NewSessionManager(r.Store)

	resumed, err := sessions.LoadOrStart(ctx, engine, r.SessionID)
	if err != nil {
		return err
	}
	if resumed {
		r.Logger.Debug("session resumed", "session_id", r.SessionID, "turn", engine.Turn())
		if err := handler.SystemOutput(ctx, fmt.Sprintf("Resuming session %s at turn %d.", r.SessionID, engine.Turn())); err != nil {
			return err
		}
	}

	var prev *domain.Snapshot
	for {
		snap := engine.Snapshot()
		if err := handler.Output(ctx, r.frame(engine, prev, snap)); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		prev = snap

		if engine.Complete() {
			return nil
		}

		input, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.Logger.Debug("runner stopped", "reason", err)
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		quit, err := r.apply(ctx, handler, engine, input)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}

		if err := sessions.Save(ctx, r.SessionID, engine.Snapshot()); err != nil {
			return fmt.Errorf("critical persistence error: %w", err)
		}
	}
}

// apply interprets one line of input.
func (r *Runner) apply(ctx context.Context, handler IOHandler, engine *skein.Engine, input string) (bool, error) {
	cmd := strings.ToLower(strings.TrimSpace(input))
	switch cmd {
	case "":
		return false, nil
	case "exit", "quit":
		return true, nil
	case "reset", "restart":
		engine.Reset()
		return false, engine.Start()
	}

	n, err := strconv.Atoi(cmd)
	if err == nil {
		var ok bool
		ok, err = engine.Choose(n - 1)
		if err != nil {
			return false, err
		}
		if ok {
			r.Logger.Debug("choice taken", "index", n, "turn", engine.Turn())
			return false, nil
		}
	}
	return false, handler.SystemOutput(ctx, fmt.Sprintf("Invalid choice %q.", input))
}

func (r *Runner) frame(engine *skein.Engine, prev, snap *domain.Snapshot) Frame {
	diff := domain.Diff(prev, snap)
	f := Frame{
		SessionID: r.SessionID,
		Choices:   choicesOf(engine.AvailableChoices()),
		Turn:      snap.Turn,
		Complete:  snap.Complete,
		Diff:      diff,
	}
	if diff != nil && diff.History != nil {
		f.Lines = diff.History.Appended
		f.Restarted = diff.History.Reset
	}
	return f
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}
