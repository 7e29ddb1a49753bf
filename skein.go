package skein

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/skein/internal/compiler"
	"github.com/aretw0/skein/internal/runtime"
	"github.com/aretw0/skein/pkg/domain"
)

// Stats summarizes an engine for status displays.
type Stats = runtime.Stats

// Story is a compiled script. It is immutable once parsed and may back any
// number of engines at the same time.
type Story struct {
	ID    string
	Title string
	// Digest identifies the source text and separator the story was compiled
	// from. Snapshots carry it so they are not restored onto another version.
	Digest string
	Graph  *domain.Graph

	// AutoAdvance and Variables are the defaults engines start with.
	AutoAdvance bool
	Variables   map[string]any
}

// Diagnostics returns the non-fatal findings of the compiler.
func (s *Story) Diagnostics() []domain.Diagnostic {
	return s.Graph.Diagnostics
}

// Parse compiles source into a Story.
func Parse(source string, opts ...ParseOption) (*Story, error) {
	cfg := newParseConfig(opts)
	return parse(source, cfg)
}

// ParseFile compiles the script at path. Includes resolve against the
// directory of the file, and the story id defaults to the file name without
// its extension.
func ParseFile(path string, opts ...ParseOption) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story: %w", err)
	}

	cfg := newParseConfig(opts)
	cfg.compilerOpts = append([]compiler.Option{compiler.WithBaseDir(filepath.Dir(path))}, cfg.compilerOpts...)
	if cfg.id == "" {
		base := filepath.Base(path)
		cfg.id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return parse(string(data), cfg)
}

// ParseSource compiles a script as a story library returns it. The settings
// stored with the script become the story defaults.
func ParseSource(src *domain.StorySource, opts ...ParseOption) (*Story, error) {
	cfg := newParseConfig(append([]ParseOption{
		WithStoryID(src.ID),
		WithSeparator(src.Separator),
	}, opts...))

	story, err := parse(src.Script, cfg)
	if err != nil {
		return nil, err
	}
	story.Title = src.Title
	story.AutoAdvance = src.AutoAdvance
	story.Variables = maps.Clone(src.Variables)
	return story, nil
}

func parse(source string, cfg *parseConfig) (*Story, error) {
	opts := append([]compiler.Option{compiler.WithLogger(cfg.logger)}, cfg.compilerOpts...)
	if cfg.fsys != nil {
		opts = append(opts, compiler.WithFS(cfg.fsys))
	}
	if cfg.separator != "" {
		opts = append(opts, compiler.WithSeparator(cfg.separator))
	}

	g, err := compiler.Compile(source, opts...)
	if err != nil {
		if cfg.id != "" {
			return nil, fmt.Errorf("story %s: %w", cfg.id, err)
		}
		return nil, err
	}

	return &Story{
		ID:     cfg.id,
		Digest: digest(source, cfg.separator),
		Graph:  g,
	}, nil
}

func digest(source, separator string) string {
	sum := sha256.Sum256([]byte(separator + "\x00" + source))
	return hex.EncodeToString(sum[:8])
}

// Engine plays a Story.
type Engine struct {
	runtime *runtime.Engine
	story   *Story
}

// New parses source with default settings and returns an engine for it.
func New(source string, opts ...Option) (*Engine, error) {
	cfg := newEngineConfig(opts)
	story, err := Parse(source, cfg.parseOpts...)
	if err != nil {
		return nil, err
	}
	return newEngine(story, cfg), nil
}

// NewEngine returns an engine positioned at the start of story.
func NewEngine(story *Story, opts ...Option) *Engine {
	return newEngine(story, newEngineConfig(opts))
}

func newEngine(story *Story, cfg *engineConfig) *Engine {
	logger := cfg.logger
	if story.ID != "" {
		logger = logger.With("story", story.ID)
	}

	autoAdvance := story.AutoAdvance
	if cfg.autoAdvance != nil {
		autoAdvance = *cfg.autoAdvance
	}

	rtOpts := []runtime.Option{
		runtime.WithLogger(logger),
		runtime.WithStoryID(story.ID, story.Digest),
		runtime.WithAutoAdvance(autoAdvance),
		runtime.WithVariables(story.Variables),
		runtime.WithVariables(cfg.variables),
		runtime.WithLifecycleHooks(cfg.hooks),
	}
	if cfg.observer != nil {
		rtOpts = append(rtOpts, runtime.WithObserver(cfg.observer))
	}

	return &Engine{
		runtime: runtime.NewEngine(story.Graph, rtOpts...),
		story:   story,
	}
}

// Start emits the opening text and stops at the first choice point.
func (e *Engine) Start() error {
	return e.runtime.Start()
}

// MakeChoice takes the choice with node id. It reports false when the choice
// is not on offer.
func (e *Engine) MakeChoice(id int) (bool, error) {
	return e.runtime.MakeChoice(id)
}

// Choose takes the choice at index in AvailableChoices.
func (e *Engine) Choose(index int) (bool, error) {
	return e.runtime.Choose(index)
}

// AvailableChoices returns the choices currently on offer.
func (e *Engine) AvailableChoices() []*domain.Node {
	return e.runtime.AvailableChoices()
}

// History returns every line emitted so far.
func (e *Engine) History() []string {
	return e.runtime.History()
}

// Reset rewinds to the beginning. What the player has already seen and
// consumed is remembered.
func (e *Engine) Reset() {
	e.runtime.Reset()
}

// Stats reports counters about the story and the walk.
func (e *Engine) Stats() Stats {
	return e.runtime.Stats()
}

// SetVariable sets a story variable.
func (e *Engine) SetVariable(name string, value any) {
	e.runtime.SetVariable(name, value)
}

// Variable reads a story variable.
func (e *Engine) Variable(name string) (any, bool) {
	return e.runtime.Variable(name)
}

// Snapshot captures the state of the walk.
func (e *Engine) Snapshot() *domain.Snapshot {
	return e.runtime.Snapshot()
}

// Restore resumes a walk captured by Snapshot.
func (e *Engine) Restore(s *domain.Snapshot) error {
	return e.runtime.Restore(s)
}

// Complete reports whether the story has ended.
func (e *Engine) Complete() bool {
	return e.runtime.Complete()
}

// CurrentNode returns the node the walk stopped on.
func (e *Engine) CurrentNode() *domain.Node {
	return e.runtime.CurrentNode()
}

// Turn returns the number of choices taken.
func (e *Engine) Turn() int {
	return e.runtime.Turn()
}

// Story returns the story being played.
func (e *Engine) Story() *Story {
	return e.story
}
