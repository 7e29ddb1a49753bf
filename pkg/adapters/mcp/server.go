package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/skein"
	"github.com/aretw0/skein/internal/logging"
	"github.com/aretw0/skein/internal/presentation/graph"
	"github.com/aretw0/skein/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StoryURIPrefix addresses story sources as resources.
const StoryURIPrefix = "skein://stories/"

// StoryList is the result of list_stories.
type StoryList struct {
	Stories []string `json:"stories" jsonschema_description:"Ids of the stories in the library"`
}

type startArgs struct {
	StoryID   string `json:"story_id"`
	SessionID string `json:"session_id,omitempty"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type chooseArgs struct {
	SessionID string `json:"session_id"`
	Index     *int   `json:"index"`
}

type graphArgs struct {
	StoryID   string `json:"story_id"`
	Format    string `json:"format,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Server exposes a session.Manager as an MCP server, so agents can play
// stories through tool calls.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("skein-mcp", skein.Version, server.WithResourceCapabilities(false, false)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_stories",
		mcp.WithDescription("List the stories that can be started."),
		mcp.WithOutputSchema[StoryList](),
	), mcp.NewStructuredToolHandler(s.handleListStories))

	s.mcpServer.AddTool(mcp.NewTool("start_story",
		mcp.WithDescription("Start a story in a new session. Returns the opening text and the choices on offer."),
		mcp.WithString("story_id", mcp.Required(), mcp.Description("Id of the story to start")),
		mcp.WithString("session_id", mcp.Description("Session id to use; generated when omitted. An existing session with this id is replaced.")),
		mcp.WithOutputSchema[session.Session](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Take one of the choices on offer. The result holds the new text in diff.history.appended."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Index of the choice, as listed in choices")),
		mcp.WithOutputSchema[session.Session](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the full history and the current choices of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[session.Session](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Replay a session from the beginning. Choices already used up stay used up."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[session.Session](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the compiled graph of a story as JSON or as a Mermaid flowchart."),
		mcp.WithString("story_id", mcp.Required(), mcp.Description("Id of the story")),
		mcp.WithString("format", mcp.Enum("json", "mermaid"), mcp.Description("Output format, json by default")),
		mcp.WithString("session_id", mcp.Description("Highlight the path of this session (mermaid only)")),
	), s.handleGetGraph)
}

func (s *Server) handleListStories(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (StoryList, error) {
	ids, err := s.sessions.Stories(ctx)
	if err != nil {
		return StoryList{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return StoryList{Stories: ids}, nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (session.Session, error) {
	if args.StoryID == "" {
		return session.Session{}, errors.New("story_id is required")
	}
	view, err := s.sessions.Start(ctx, args.StoryID, args.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	return *view, nil
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args chooseArgs) (session.Session, error) {
	if args.Index == nil {
		return session.Session{}, errors.New("index is required")
	}
	view, err := s.sessions.Choose(ctx, args.SessionID, *args.Index)
	if err != nil {
		s.logger.Debug("mcp choose failed", "session_id", args.SessionID, "err", err)
		return session.Session{}, err
	}
	return *view, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (session.Session, error) {
	view, err := s.sessions.Get(ctx, args.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	return *view, nil
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (session.Session, error) {
	view, err := s.sessions.Reset(ctx, args.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	return *view, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args graphArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	story, err := s.sessions.Story(ctx, args.StoryID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch args.Format {
	case "", "json":
		data, err := json.Marshal(story.Graph)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	case "mermaid":
		var overlay *graph.GraphOverlay
		if args.SessionID != "" {
			snap, err := s.sessions.Snapshot(ctx, args.SessionID)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			overlay = graph.OverlayFromSnapshot(snap)
		}
		return mcp.NewToolResultText(graph.GenerateMermaid(story.Graph, overlay)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", args.Format)), nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(StoryURIPrefix+"{id}", "Story source",
		mcp.WithTemplateDescription("The script and digest of a story in the library."),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readStory)
}

// storyResource is the body of a story resource.
type storyResource struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Digest      string `json:"digest"`
	Nodes       int    `json:"nodes"`
	Diagnostics int    `json:"diagnostics"`
}

func (s *Server) readStory(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, StoryURIPrefix)
	if id == "" || id == request.Params.URI {
		return nil, fmt.Errorf("invalid story uri %q", request.Params.URI)
	}

	story, err := s.sessions.Story(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(storyResource{
		ID:          story.ID,
		Title:       story.Title,
		Digest:      story.Digest,
		Nodes:       len(story.Graph.Nodes),
		Diagnostics: len(story.Diagnostics()),
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
