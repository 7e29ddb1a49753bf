package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/skein/internal/presentation/graph"
)

// GraphOptions configure the graph command.
type GraphOptions struct {
	Path   string
	Format string
	// SessionID highlights the progress of a saved session.
	SessionID string
}

// Graph writes the compiled graph as Mermaid or JSON.
func (a *App) Graph(ctx context.Context, opts GraphOptions) error {
	story, err := a.ParseFile(opts.Path)
	if err != nil {
		return err
	}

	switch opts.Format {
	case "", "mermaid":
		var overlay *graph.GraphOverlay
		if opts.SessionID != "" {
			if overlay, err = a.overlay(ctx, opts.SessionID); err != nil {
				return err
			}
		}
		_, err = fmt.Fprint(a.Stdout, graph.GenerateMermaid(story.Graph, overlay))
		return err
	case "json":
		enc := json.NewEncoder(a.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(story.Graph)
	default:
		return fmt.Errorf("unknown graph format %q (want mermaid or json)", opts.Format)
	}
}

func (a *App) overlay(ctx context.Context, sessionID string) (*graph.GraphOverlay, error) {
	p, err := OpenStore(ctx, a.Config.Store)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	snap, err := p.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return graph.OverlayFromSnapshot(snap), nil
}
