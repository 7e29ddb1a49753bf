package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/skein/pkg/adapters/loam"
	"github.com/aretw0/skein/pkg/observability"
	"github.com/aretw0/skein/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// OpenLibrary opens the story library at path, falling back to the
// configured one.
func (a *App) OpenLibrary(path string) (*loam.Library, error) {
	if path == "" {
		path = a.Config.Library.Path
	}
	lib, err := loam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library %s: %w", path, err)
	}
	return lib, nil
}

// Stories prints the id and title of every story in the library.
func (a *App) Stories(ctx context.Context, libraryPath string) error {
	lib, err := a.OpenLibrary(libraryPath)
	if err != nil {
		return err
	}
	ids, err := lib.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(a.Stdout, "No stories found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, id := range ids {
		src, err := lib.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", id, src.Title)
	}
	return tw.Flush()
}

// newManager wires a session manager over the library and the configured
// store. Metrics are registered on reg when it is not nil. The returned
// close func releases the store.
func (a *App) newManager(ctx context.Context, libraryPath string, reg prometheus.Registerer) (*session.Manager, func() error, error) {
	lib, err := a.OpenLibrary(libraryPath)
	if err != nil {
		return nil, nil, err
	}
	p, err := OpenStore(ctx, a.Config.Store)
	if err != nil {
		return nil, nil, err
	}

	hooks := observability.LoggingHooks(a.Logger)
	if reg != nil {
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		hooks = observability.Chain(metrics.Hooks(), hooks)
	}

	opts := []session.Option{
		session.WithLogger(a.Logger),
		session.WithLifecycleHooks(hooks),
		session.WithLockTTL(a.Config.Server.LockTTL),
		session.WithParseOptions(a.parseOptions()...),
	}
	if p.Locker != nil {
		opts = append(opts, session.WithLocker(p.Locker))
	}
	mgr := session.NewManager(p.Store, lib, opts...)

	if a.Config.Library.Watch {
		if err := mgr.WatchLibrary(ctx); err != nil {
			a.Logger.Warn("library watch disabled", "err", err)
		}
	}
	return mgr, p.Close, nil
}
