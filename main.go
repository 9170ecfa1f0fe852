package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"drawdesk/internal/hub"
	mcpserver "drawdesk/internal/mcp"
	"drawdesk/internal/remote"
	"drawdesk/internal/scene"
	"drawdesk/internal/server"
	"drawdesk/internal/service"
	"drawdesk/internal/supervisor"
)

func main() {
	var (
		port         = flag.Int("port", defaultPort(), "TCP port for HTTP and WebSocket")
		mcpStdio     = flag.Bool("mcp-stdio", false, "serve the tool catalogue on stdin/stdout against CANVAS_SERVER_URL and exit")
		autoSnapshot = flag.String("auto-snapshot", "", "cron schedule for in-memory auto snapshots (e.g. \"*/10 * * * *\")")
		autoSnapKeep = flag.Int("auto-snapshot-keep", 10, "how many auto snapshots to retain")
	)
	flag.Parse()

	if *mcpStdio {
		serveStdio()
		return
	}
	serveHTTP(*port, *autoSnapshot, *autoSnapKeep)
}

func defaultPort() int {
	for _, key := range []string{"CANVAS_PORT", "PORT"} {
		if v := os.Getenv(key); v != "" {
			if p, err := strconv.Atoi(v); err == nil {
				return p
			}
		}
	}
	return 3100
}

// serveStdio runs the tool gateway as a stdio child. Tool calls proxy to the
// parent canvas server so stdio agents share the same scene.
func serveStdio() {
	serverURL := os.Getenv("CANVAS_SERVER_URL")
	if serverURL == "" {
		serverURL = fmt.Sprintf("http://localhost:%d", defaultPort())
	}
	backend := remote.New(serverURL)
	if err := mcpserver.New(backend).ServeStdio(); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}

func serveHTTP(port int, autoSnapshot string, autoSnapKeep int) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	store := scene.NewStore()
	bus := hub.NewBus(logger)
	corr := hub.NewCorrelator()
	svc := service.NewCanvasService(store, bus, corr)
	gateway := mcpserver.New(svc)
	srv := server.New(svc, bus, gateway.HTTPHandler(), logger)

	if autoSnapshot != "" {
		snapper := scene.NewAutoSnapshotter(store, autoSnapKeep, logger)
		if err := snapper.Start(autoSnapshot); err != nil {
			log.Fatalf("Invalid auto-snapshot schedule: %v", err)
		}
		defer snapper.Stop()
	}

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	sup := supervisor.New(serverURL, logger)
	if err := sup.Start(); err != nil {
		logger.Warn("stdio MCP child failed to start", "error", err)
	}
	defer sup.Stop()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: srv.Handler(),
	}

	go func() {
		log.Printf("[canvas] Listening on %s", serverURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[canvas] Shutting down...")
	_ = httpServer.Close()
}
