package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/skein/internal/config"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/internal/testutils"
	"github.com/aretw0/skein/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	twoKnots = "Hello\n* A -> a\n* B -> b\n== a ==\nGot A\n== b ==\nGot B"
	hub      = "-> hub\n== hub ==\nWhere now?\n* Read the sign -> hub\n+ Wait -> hub\n* Leave -> END"
)

// syncBuffer lets a test read output while a run is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Read(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func newTestApp(t *testing.T) (*App, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	return &App{
		Config: config.Default(),
		Logger: logging.NewNop(),
		Stdout: out,
		Stderr: out,
	}, out
}

func writeScript(t *testing.T, name, script string) string {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{name: script})
	return filepath.Join(dir, name)
}

func TestNewApp_FlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skein.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\nseparator: \"|\"\n"), 0o644))

	app, err := NewApp(GlobalOptions{ConfigPath: path, LogFormat: "json"})
	require.NoError(t, err)
	assert.Equal(t, "warn", app.Config.Log.Level)
	assert.Equal(t, "json", app.Config.Log.Format)
	assert.Equal(t, "|", app.Config.Separator)

	app, err = NewApp(GlobalOptions{ConfigPath: path, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "debug", app.Config.Log.Level)

	_, err = NewApp(GlobalOptions{ConfigPath: path, LogLevel: "loud"})
	assert.Error(t, err)

	_, err = NewApp(GlobalOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	p, err := OpenStore(ctx, config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, p.Store)
	assert.Nil(t, p.Locker)
	assert.NoError(t, p.Close())

	p, err = OpenStore(ctx, config.StoreConfig{Backend: "file", Path: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, p.Store)

	_, err = OpenStore(ctx, config.StoreConfig{Backend: "tape"})
	assert.ErrorContains(t, err, "unknown store backend")

	_, err = OpenStore(ctx, config.StoreConfig{Backend: "memory", EncryptionKey: "c2hvcnQ="})
	assert.ErrorContains(t, err, "32 bytes")
}

func TestOpenStore_Encrypted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.StoreConfig{
		Backend:       "file",
		Path:          dir,
		EncryptionKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32)),
		MaskVariables: []string{"password"},
	}

	p, err := OpenStore(ctx, cfg)
	require.NoError(t, err)

	snap := domain.NewSnapshot()
	snap.History = []string{"A secret line"}
	snap.Variables["password"] = "hunter2"
	require.NoError(t, p.Store.Save(ctx, "s1", snap))

	raw, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "A secret line")

	loaded, err := p.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A secret line"}, loaded.History)
	assert.Equal(t, "***", loaded.Variables["password"])
}

func TestRun_Ephemeral(t *testing.T) {
	app, out := newTestApp(t)
	path := writeScript(t, "two.ink", twoKnots)

	err := app.Run(context.Background(), RunOptions{Path: path}, strings.NewReader("2\n"))
	require.NoError(t, err)

	assert.Equal(t, "Hello\n\n1) A\n2) B\n> • B\nGot B\n"+domain.AutoEndText+"\n", out.String())
}

func TestRun_ParseFailure(t *testing.T) {
	app, _ := newTestApp(t)
	err := app.Run(context.Background(), RunOptions{Path: filepath.Join(t.TempDir(), "none.ink")}, strings.NewReader(""))
	assert.ErrorContains(t, err, "failed to parse")
}

func TestRun_SessionResumesAndFresh(t *testing.T) {
	app, out := newTestApp(t)
	app.Config.Store = config.StoreConfig{Backend: "file", Path: t.TempDir()}
	path := writeScript(t, "hub.ink", hub)
	ctx := context.Background()
	opts := RunOptions{Path: path, SessionID: "reader-1"}

	require.NoError(t, app.Run(ctx, opts, strings.NewReader("1\n")))
	assert.NotContains(t, out.String(), "Resuming")

	out.Reset()
	require.NoError(t, app.Run(ctx, opts, strings.NewReader("")))
	assert.Contains(t, out.String(), "[System] Resuming session reader-1 at turn 1.")
	assert.Contains(t, out.String(), "1) Wait")
	assert.NotContains(t, out.String(), ") Read the sign", "a non-sticky choice stays spent")

	out.Reset()
	opts.Fresh = true
	require.NoError(t, app.Run(ctx, opts, strings.NewReader("")))
	assert.NotContains(t, out.String(), "Resuming")
	assert.Contains(t, out.String(), "1) Read the sign")
}

func TestRun_JSON(t *testing.T) {
	app, out := newTestApp(t)
	path := writeScript(t, "two.ink", twoKnots)

	err := app.Run(context.Background(), RunOptions{Path: path, JSON: true}, strings.NewReader(`{"choice":1}`+"\n"))
	require.NoError(t, err)

	var frames []map[string]any
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &frame), scanner.Text())
		frames = append(frames, frame)
	}
	require.Len(t, frames, 2)
	assert.Len(t, frames[0]["choices"], 2)
	assert.Equal(t, true, frames[1]["complete"])
	assert.Contains(t, frames[1]["lines"], "Got A")
}

func TestRun_WatchStopsWithContext(t *testing.T) {
	app, out := newTestApp(t)
	path := writeScript(t, "two.ink", twoKnots)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	r, w := io.Pipe()
	go func() { done <- app.Run(ctx, RunOptions{Path: path, Watch: true}, r) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Hello") }, 2*time.Second, 10*time.Millisecond)
	cancel()
	w.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch run did not stop")
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("clean", func(t *testing.T) {
		app, out := newTestApp(t)
		path := writeScript(t, "two.ink", twoKnots)
		require.NoError(t, app.Validate(ctx, ValidateOptions{Path: path, Strict: true}))
		assert.Contains(t, out.String(), "✓ two:")
		assert.NotContains(t, out.String(), "diagnostic")
	})

	t.Run("diagnostics", func(t *testing.T) {
		app, out := newTestApp(t)
		path := writeScript(t, "shop.ink", "Hello\n* {gold == 3} Pay\nThanks")

		require.NoError(t, app.Validate(ctx, ValidateOptions{Path: path}))
		assert.Contains(t, out.String(), "line 2: dropped unrecognized condition {gold == 3}")
		assert.Contains(t, out.String(), "diagnostic(s)")

		err := app.Validate(ctx, ValidateOptions{Path: path, Strict: true})
		assert.ErrorIs(t, err, ErrDiagnostics)
	})

	t.Run("missing file", func(t *testing.T) {
		app, out := newTestApp(t)
		err := app.Validate(ctx, ValidateOptions{Path: filepath.Join(t.TempDir(), "x.ink")})
		assert.Error(t, err)
		assert.Contains(t, out.String(), "✗")
	})
}

func TestGraph(t *testing.T) {
	ctx := context.Background()
	path := writeScript(t, "two.ink", twoKnots)

	t.Run("mermaid", func(t *testing.T) {
		app, out := newTestApp(t)
		require.NoError(t, app.Graph(ctx, GraphOptions{Path: path}))
		assert.True(t, strings.HasPrefix(out.String(), "graph TD"))
		assert.Contains(t, out.String(), `-- "A" -->`)
	})

	t.Run("json", func(t *testing.T) {
		app, out := newTestApp(t)
		require.NoError(t, app.Graph(ctx, GraphOptions{Path: path, Format: "json"}))
		var g struct {
			Nodes map[string]any `json:"nodes"`
			Edges []any          `json:"edges"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &g))
		assert.NotEmpty(t, g.Nodes)
		assert.NotEmpty(t, g.Edges)
	})

	t.Run("session overlay", func(t *testing.T) {
		app, out := newTestApp(t)
		app.Config.Store = config.StoreConfig{Backend: "file", Path: t.TempDir()}
		require.NoError(t, app.Run(ctx, RunOptions{Path: path, SessionID: "s1"}, strings.NewReader("")))

		out.Reset()
		require.NoError(t, app.Graph(ctx, GraphOptions{Path: path, SessionID: "s1"}))
		assert.Contains(t, out.String(), "classDef current")
	})

	t.Run("bad format", func(t *testing.T) {
		app, _ := newTestApp(t)
		assert.ErrorContains(t, app.Graph(ctx, GraphOptions{Path: path, Format: "dot"}), "unknown graph format")
	})
}

func TestStories(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"cellar.md": testutils.Markdown("title: The Cellar", twoKnots),
		"hub.md":    hub,
	})

	app, out := newTestApp(t)
	require.NoError(t, app.Stories(context.Background(), dir))
	assert.Contains(t, out.String(), "ID")
	assert.Regexp(t, `cellar\s+The Cellar`, out.String())
	assert.Contains(t, out.String(), "hub")

	empty, out := newTestApp(t)
	require.NoError(t, empty.Stories(context.Background(), t.TempDir()))
	assert.Contains(t, out.String(), "No stories found.")
}
