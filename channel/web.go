package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/graph"
	"github.com/linanwx/notebot/internal/health"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/provider"
	"github.com/linanwx/notebot/stream"
	"github.com/linanwx/notebot/tools"
	"github.com/rs/cors"
)

// WebChannel serves the engine over HTTP. Turns are answered with a
// server-sent event stream of frames.
type WebChannel struct {
	addr    string
	engine  *graph.Engine
	mux     *stream.Multiplexer
	router  *mux.Router
	handler http.Handler
	// agent is the static part of the health report.
	agent health.AgentInfo

	wg       sync.WaitGroup
	server   *http.Server
	boundMu  sync.RWMutex
	boundURL string
}

type chatOptions struct {
	ConversationID string `json:"conversationId"`
	Action         string `json:"action"`
}

// chatRequest accepts both {input, thread_id, action} and the
// {input, options: {conversationId, action}} shape.
type chatRequest struct {
	Input    string       `json:"input"`
	ThreadID string       `json:"thread_id"`
	Action   string       `json:"action"`
	Options  *chatOptions `json:"options,omitempty"`
}

func (r chatRequest) turn(userID string) graph.Turn {
	t := graph.Turn{
		ThreadID: r.ThreadID,
		Input:    r.Input,
		Action:   r.Action,
		UserID:   userID,
	}
	if r.Options != nil {
		if t.ThreadID == "" {
			t.ThreadID = r.Options.ConversationID
		}
		if t.Action == "" {
			t.Action = r.Options.Action
		}
	}
	return t
}

type threadResponse struct {
	ThreadID    string           `json:"thread_id"`
	PendingNode string           `json:"pending_node,omitempty"`
	Question    string           `json:"question,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Running     bool             `json:"running"`
	Messages    []historyMessage `json:"messages"`
}

type historyMessage struct {
	Role       string   `json:"role"`
	Content    string   `json:"content,omitempty"`
	ToolCalls  []string `json:"tool_calls,omitempty"`
	ToolCallID string   `json:"tool_call_id,omitempty"`
	Name       string   `json:"name,omitempty"`
}

// NewWebChannel creates a web channel from config.
func NewWebChannel(cfg *config.Config, engine *graph.Engine) *WebChannel {
	addr := runtimecfg.WebChannelDefaultAddr
	origins := []string{"*"}
	var info health.AgentInfo
	if cfg != nil {
		info = health.AgentInfo{
			Provider:   cfg.GetProvider(),
			Model:      cfg.GetModelType(),
			Checkpoint: cfg.Checkpoint.Driver,
		}
	}
	if cfg != nil && cfg.Channels != nil && cfg.Channels.Web != nil {
		if strings.TrimSpace(cfg.Channels.Web.Addr) != "" {
			addr = strings.TrimSpace(cfg.Channels.Web.Addr)
		}
		if len(cfg.Channels.Web.AllowedOrigins) > 0 {
			origins = cfg.Channels.Web.AllowedOrigins
		}
	}

	w := &WebChannel{
		addr:   addr,
		engine: engine,
		mux:    stream.NewMultiplexer(),
		router: mux.NewRouter(),
		agent:  info,
	}
	w.registerRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{runtimecfg.WebChannelThreadIDHeader, "Content-Type"},
	})
	w.handler = c.Handler(w.router)
	return w
}

// Name returns the channel name.
func (w *WebChannel) Name() string { return "web" }

// Handler returns the HTTP handler with CORS applied.
func (w *WebChannel) Handler() http.Handler { return w.handler }

// URL returns the base URL the server is bound to, once started.
func (w *WebChannel) URL() string {
	w.boundMu.RLock()
	defer w.boundMu.RUnlock()
	return w.boundURL
}

func (w *WebChannel) registerRoutes() {
	w.router.HandleFunc("/healthz", w.handleHealth).Methods(http.MethodGet)
	w.router.HandleFunc("/agent/chat", w.handleChat).Methods(http.MethodPost)
	w.router.HandleFunc("/agent/tools", w.handleTools).Methods(http.MethodGet)
	w.router.HandleFunc("/agent/threads/{id}", w.handleGetThread).Methods(http.MethodGet)
	w.router.HandleFunc("/agent/threads/{id}", w.handleDeleteThread).Methods(http.MethodDelete)

	mcpServer := newMCPServer(w.engine.Tools(), runtimecfg.MCPServerVersion)
	w.router.Handle(runtimecfg.WebChannelMCPSSEPath, mcpServer).Methods(http.MethodGet)
	w.router.Handle(runtimecfg.WebChannelMCPMessagePath, mcpServer).Methods(http.MethodPost)
}

// Start starts the HTTP server.
func (w *WebChannel) Start(ctx context.Context) error {
	w.server = &http.Server{
		Addr:              w.addr,
		Handler:           w.handler,
		ReadHeaderTimeout: runtimecfg.WebChannelReadHeaderTimeout,
	}

	ln, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("web channel listen failed on %s: %w", w.addr, err)
	}

	bindAddr := ln.Addr().String()
	w.boundMu.Lock()
	w.boundURL = webURLHintFromAddr(bindAddr)
	w.boundMu.Unlock()
	logger.Info("web channel started", "addr", bindAddr, "url", w.URL(), "mcp", w.URL()+runtimecfg.WebChannelMCPSSEPath)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if serveErr := w.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("web channel server error", "err", serveErr)
		}
	}()
	return nil
}

// Stop gracefully stops the server. Open streams are cancelled after the
// shutdown timeout.
func (w *WebChannel) Stop() error {
	if w.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), runtimecfg.WebChannelShutdownTimeout)
		defer cancel()
		if err := w.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("web channel shutdown error", "err", err)
			_ = w.server.Close()
		}
	}

	w.wg.Wait()
	logger.Info("web channel stopped")
	return nil
}

func (w *WebChannel) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	info := w.agent
	info.ActiveRuns = w.engine.ActiveRuns()
	info.Tools = w.engine.ToolNames()
	writeJSON(rw, http.StatusOK, health.Collect(health.Options{Agent: &info}))
}

func (w *WebChannel) handleTools(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, map[string][]string{"tools": w.engine.ToolNames()})
}

func (w *WebChannel) handleChat(rw http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequest(rw, err.Error())
		return
	}
	flusher, ok := rw.(http.Flusher)
	if !ok {
		writeError(rw, http.StatusInternalServerError, errorCodeRuntime, "streaming unsupported")
		return
	}

	// A client disconnect cancels the run; the engine keeps its last checkpoint.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	turn := req.turn(r.Header.Get(runtimecfg.WebChannelUserIDHeader))
	threadID, events, err := w.engine.Stream(ctx, turn)
	if err != nil {
		logger.Warn("chat rejected", "threadID", turn.ThreadID, "action", turn.Action, "err", err)
		writeMappedError(rw, err)
		return
	}

	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set(runtimecfg.WebChannelThreadIDHeader, threadID)
	rw.WriteHeader(http.StatusOK)
	flusher.Flush()

	if err := w.mux.Pipe(ctx, events, stream.NewSSEWriter(rw)); err != nil {
		logger.Warn("chat stream ended with error", "threadID", threadID, "err", err)
	}
}

func (w *WebChannel) handleGetThread(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := w.engine.Thread(r.Context(), id)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownThread) {
			writeError(rw, http.StatusNotFound, errorCodeNotFound, err.Error())
			return
		}
		writeMappedError(rw, err)
		return
	}

	resp := threadResponse{
		ThreadID:    rec.ThreadID,
		PendingNode: rec.PendingNode,
		UpdatedAt:   rec.UpdatedAt,
		Running:     w.engine.Busy(rec.ThreadID),
		Messages:    make([]historyMessage, 0, len(rec.Messages)),
	}
	if call, ok := rec.PendingCall(); ok {
		resp.Question = tools.AskHumanQuestion(call.Function.Arguments)
	}
	for _, m := range rec.Messages {
		resp.Messages = append(resp.Messages, toHistoryMessage(m))
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (w *WebChannel) handleDeleteThread(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := w.engine.DeleteThread(r.Context(), id); err != nil {
		if errors.Is(err, graph.ErrUnknownThread) {
			writeError(rw, http.StatusNotFound, errorCodeNotFound, err.Error())
			return
		}
		writeMappedError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func toHistoryMessage(m provider.Message) historyMessage {
	h := historyMessage{
		Role:       m.Role,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	for _, tc := range m.ToolCalls {
		h.ToolCalls = append(h.ToolCalls, tc.Function.Name)
	}
	return h
}

func webURLHintFromAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}

	host = strings.TrimSpace(host)
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
