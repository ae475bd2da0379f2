package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/reportlocator/internal/api"
	"github.com/kalambet/reportlocator/internal/cluster"
	"github.com/kalambet/reportlocator/internal/config"
	"github.com/kalambet/reportlocator/internal/locator"
	"github.com/kalambet/reportlocator/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools on stdin/stdout")
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "reportlocator version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Refuse to start twice on the same port.
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(cfg.BaseURL() + "/health"); err == nil {
		resp.Body.Close()
		printWarning("reportlocator is already running on %s", cfg.BaseURL())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Lookup history is optional.
	var (
		history  api.History
		recorder locator.Recorder
	)
	if cfg.Storage.HistoryEnabled {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
			}
		}()
		history, recorder = store, store
		slog.Info("lookup history enabled", "data_dir", cfg.Storage.DataDir)
	}

	mongo := cluster.New(cluster.Config{
		URI:            cfg.Mongo.URI,
		Collection:     cfg.Mongo.Collection,
		ConnectTimeout: cfg.ConnectTimeout(),
	})
	loc := locator.New(locator.Mongo{Cluster: mongo}, locator.Options{
		Strategy:    cfg.Strategy(),
		Parallelism: cfg.Locator.Parallelism,
		Timeout:     cfg.LocateTimeout(),
		Recorder:    recorder,
	})
	slog.Info("locator configured",
		"collection", cfg.Mongo.Collection,
		"strategy", cfg.Strategy(),
		"timeout", cfg.LocateTimeout(),
	)

	topRouter := chi.NewRouter()
	topRouter.Mount("/", api.NewHandler(api.Deps{Locator: loc, History: history}))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           topRouter,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Locator: loc, History: history, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		printStep("reportlocator listening on %s (reachable at %s)", cfg.Addr(), cfg.BaseURL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
