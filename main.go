// Command chipslide starts the chip sliding puzzle server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, WebSocket, /metrics and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the level pack directory, the settings file, debug
// logging, version output, and optional ngrok tunneling for external access
// during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/chipslide/api"
	"github.com/wricardo/chipslide/game/levels"
	"github.com/wricardo/chipslide/game/metrics"
	"github.com/wricardo/chipslide/game/results"
	"github.com/wricardo/chipslide/game/service"
	"github.com/wricardo/chipslide/game/session"
	"github.com/wricardo/chipslide/game/settings"
	"github.com/wricardo/chipslide/game/solver"
	"github.com/wricardo/chipslide/transport/mcp"
	"github.com/wricardo/chipslide/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chip Slide Puzzle Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	levelsDir    = flag.String("levels-dir", getLevelsDirDefault(), "Directory holding level pack files (<pack>.txt)")
	settingsPath = flag.String("settings", "", "YAML settings file (or CHIPSLIDE_SETTINGS env var)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getLevelsDirDefault honors LEVELS_DIR, then falls back to "levels".
func getLevelsDirDefault() string {
	if dir := os.Getenv("LEVELS_DIR"); dir != "" {
		return dir
	}
	return "levels"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, metrics and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio, mcp   Aliases for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -levels-dir ./packs      # Serve packs from ./packs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s mcp -port 9090           # Run MCP stdio server with internal HTTP on port 9090\n", os.Args[0])
	}
}

// newLogger builds the process logger. It writes to stderr so stdio MCP keeps
// stdout to itself.
func newLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "chipslide",
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
	}
	return logger
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	logger := newLogger(*debug)

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("error loading .env file", "err", err)
		}
	} else {
		logger.Info("loaded environment variables from .env file")
	}

	cfg, err := settings.Load(*settingsPath)
	if err != nil {
		logger.Fatal("failed to load settings", "err", err)
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	logger.Info("starting", "app", AppName, "version", Version, "mode", mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcs, err := initializeServices(ctx, cfg, *levelsDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", "err", err)
	}
	defer svcs.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(ctx, svcs, logger)

	case "server", "http":
		runHTTPServer(ctx, cancel, svcs, logger)

	default:
		logger.Fatal("unknown mode, use 'server' (default) or 'stdio-mcp'", "mode", mode)
	}
}

// services is everything the transports need, plus what shutdown must flush
type services struct {
	game     service.GameService
	sessions *session.Manager
	results  *results.SQLiteStore
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// Close flushes sessions and closes the results database
func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.logger.Warn("failed to save sessions on shutdown", "err", err)
	}
	if s.results != nil {
		if err := s.results.Close(); err != nil {
			s.logger.Warn("failed to close results database", "err", err)
		}
	}
}

// initializeServices wires the level, session, result and solver layers into
// the game service. Background maintenance runs until ctx is done.
func initializeServices(ctx context.Context, cfg settings.Settings, packsDir string, logger *log.Logger) (*services, error) {
	m := metrics.New()

	if packsDir != "" {
		if err := os.MkdirAll(packsDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create levels directory: %w", err)
		}
	}
	levelManager, err := levels.NewManager(packsDir, cfg.ChipTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	levelManager.OnLoaded(m.LevelsLoaded)
	// Reload so the default pack is counted too
	if err := levelManager.RefreshCache(); err != nil {
		return nil, fmt.Errorf("failed to load default pack: %w", err)
	}

	persistence, err := session.NewFilePersistence(cfg.SessionsDir, cfg.EngineOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	sessionManager := session.NewManagerWithPersistence(cfg.EngineOptions(), persistence, logger)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", "err", err)
	}
	m.SessionsActive(sessionManager.Count())

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithRecorder(m),
		service.WithSolver(solver.New(cfg.SolverMaxStates)),
		service.WithAnimation(cfg.MovementSpeed, cfg.AnimationFPS),
	}

	var store *results.SQLiteStore
	if cfg.ResultsDB != "" {
		store, err = results.NewSQLite(cfg.ResultsDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open results database: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to prepare results database: %w", err)
		}
		opts = append(opts, service.WithResults(store))
	}

	svcs := &services{
		game:     service.NewGameService(sessionManager, levelManager, opts...),
		sessions: sessionManager,
		results:  store,
		metrics:  m,
		logger:   logger,
	}

	if cfg.SessionTTL > 0 {
		go sessionCleanupRoutine(ctx, sessionManager, cfg.SessionTTL, m, logger)
	}
	go filesystemSyncRoutine(ctx, sessionManager, persistence, logger)

	return svcs, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl and refreshes the active session gauge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, recorder service.Recorder, logger *log.Logger) {
	interval := ttl / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", "removed", removed)
			}
			recorder.SessionsActive(manager.Count())
		}
	}
}

// filesystemSyncRoutine drops sessions from memory once their file has been
// deleted from the sessions directory.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, logger *log.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pruned := 0
		for _, s := range manager.List() {
			if !persistence.Exists(s.ID) {
				if err := manager.DeleteFromMemory(s.ID); err == nil {
					pruned++
					logger.Debug("pruned session from memory (file deleted)", "session", s.ID)
				}
			}
		}
		if pruned > 0 {
			logger.Info("filesystem sync pruned orphaned sessions", "pruned", pruned)
		}
	}
}

// newMCPHandler serves single MCP JSON-RPC messages over HTTP POST
func newMCPHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// newRouter mounts the API server at the root and the MCP proxy at /mcp
func newRouter(svcs *services, hub *websocket.Hub, mcpBaseURL string, logger *log.Logger) http.Handler {
	apiServer := api.NewServer(svcs.game, hub,
		api.WithLogger(logger),
		api.WithInstrumentation(svcs.metrics),
	)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcp.NewClient(mcpBaseURL)))
	return mainRouter
}

// runHTTPServer starts the HTTP server and, if enabled, an ngrok tunnel.
// It blocks until SIGINT or SIGTERM.
func runHTTPServer(ctx context.Context, cancel context.CancelFunc, svcs *services, logger *log.Logger) {
	hub := websocket.NewHub(logger.WithPrefix("ws"))
	go hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mainRouter := newRouter(svcs, hub, fmt.Sprintf("http://%s", addr), logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints",
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr))

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "err", err)
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
		ngrokShouldRun = true
	}
	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter, logger)
		}()
	}

	sig := <-stop
	logger.Info("shutting down", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	logger.Info("server stopped")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is done
func runNgrokTunnel(ctx context.Context, handler http.Handler, logger *log.Logger) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
	}
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTH_TOKEN")
	}
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "err", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "err", err)
		}
	}()

	logger.Info("ngrok tunnel established", "url", tun.URL())

	// Serve returns once the tunnel closes; close it when we are told to stop
	go func() {
		<-ctx.Done()
		tun.Close()
	}()
	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Error("ngrok server error", "err", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It reuses an API
// already listening on -port; otherwise it starts an internal HTTP API on a
// random loopback port.
func runStdioMCPWithInternalServer(ctx context.Context, svcs *services, logger *log.Logger) {
	externalURL := fmt.Sprintf("http://localhost:%d", *port)
	baseURL := externalURL

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		logger.Info("external API server found, using it for MCP", "url", externalURL)
	} else {
		if resp != nil {
			resp.Body.Close()
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logger.Fatal("failed to get available port", "err", err)
		}
		internalAddr := listener.Addr().String()
		baseURL = "http://" + internalAddr

		hub := websocket.NewHub(logger.WithPrefix("ws"))
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: newRouter(svcs, hub, baseURL, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", "err", err)
			}
		}()
		defer httpServer.Close()

		logger.Info("started internal HTTP server for MCP stdio", "addr", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logger.Error("MCP stdio server error", "err", err)
	}
}
