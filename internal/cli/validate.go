package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aretw0/skein"
)

// ErrDiagnostics is returned by a strict validation that found warnings.
var ErrDiagnostics = errors.New("story has diagnostics")

// ValidateOptions configure the validate command.
type ValidateOptions struct {
	Path   string
	Strict bool
	Watch  bool
}

// Validate compiles the script and reports its diagnostics. With Watch it
// keeps re-validating on every change until ctx is done.
func (a *App) Validate(ctx context.Context, opts ValidateOptions) error {
	err := a.validateOnce(opts)
	if !opts.Watch {
		return err
	}

	changes, werr := watchDir(ctx, filepath.Dir(opts.Path), watchDebounce, a.Logger)
	if werr != nil {
		return werr
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Fprintf(a.Stdout, ">>> Change detected in %s.\n", filepath.Base(name))
			// Failures are already printed; keep watching.
			_ = a.validateOnce(opts)
		}
	}
}

func (a *App) validateOnce(opts ValidateOptions) error {
	story, err := a.ParseFile(opts.Path)
	if err != nil {
		fmt.Fprintf(a.Stdout, "✗ %v\n", err)
		return err
	}

	report(a, story)
	if opts.Strict && len(story.Diagnostics()) > 0 {
		return fmt.Errorf("%w: %d found", ErrDiagnostics, len(story.Diagnostics()))
	}
	return nil
}

func report(a *App, story *skein.Story) {
	diags := story.Diagnostics()
	fmt.Fprintf(a.Stdout, "✓ %s: %d nodes, %d edges\n", story.ID, len(story.Graph.Nodes), len(story.Graph.Edges))
	for _, d := range diags {
		fmt.Fprintf(a.Stdout, "  line %d: %s\n", d.Line, d.Message)
	}
	if len(diags) > 0 {
		fmt.Fprintf(a.Stdout, "%d diagnostic(s)\n", len(diags))
	}
}
