// Entry point for the answer-engine HTTP service: config, logger, event
// store, pipeline stages, chi router, graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lucenthq/lucent/internal/config"
	"github.com/lucenthq/lucent/internal/eventstore"
	"github.com/lucenthq/lucent/internal/extractor"
	"github.com/lucenthq/lucent/internal/httpapi"
	"github.com/lucenthq/lucent/internal/llmclient"
	"github.com/lucenthq/lucent/internal/parallelsearch"
	"github.com/lucenthq/lucent/internal/pipeline"
	"github.com/lucenthq/lucent/internal/planner"
	"github.com/lucenthq/lucent/internal/searchclient"
	"github.com/lucenthq/lucent/internal/synth"
	"github.com/lucenthq/lucent/internal/tagger"
)

var version = "dev"

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openEventStore(cfg)
	if err != nil {
		logger.Error("event store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	searchCli := newSearchClient(cfg)
	llmCli := newLLMClient(cfg, logger)

	pl := planner.New(llmCli, logger)
	searcher := parallelsearch.New(searchCli, parallelsearch.Config{
		Concurrency: cfg.SearchConcurrency,
		TaskTimeout: cfg.SearchTimeout,
		MaxPerQuery: cfg.MaxResultsPerQuery,
	}, logger)
	ext := extractor.New(logger, extractor.WithTimeout(cfg.FetchTimeout))
	tag := tagger.New(llmCli, logger)
	sy := synth.New(llmCli, logger)

	p := pipeline.New(pl, searcher, ext, tag, sy, store, logger)

	httpapi.SetBuildInfo(version)
	api := httpapi.New(p, store, logger)

	srv := &http.Server{
		Addr:              portAddr(cfg.ListenPort),
		Handler:           api.Router(cfg.WebOrigin),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // the SSE answer stream holds the connection open
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ListenPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func openEventStore(cfg config.Config) (eventstore.Store, error) {
	if cfg.EventStoreDriver == "sqlite" {
		return eventstore.OpenSQLiteStore(cfg.EventStorePath, cfg.BanditPendingTimeout)
	}
	return eventstore.NewMemoryStore(cfg.BanditPendingTimeout), nil
}

// newSearchClient returns the production Brave-style HTTP client if
// SEARCH_API_KEY is set, otherwise an in-process stub (useful for local
// runs and demos without a provisioned search vendor).
func newSearchClient(cfg config.Config) searchclient.Client {
	if cfg.SearchAPIKey == "" {
		return searchclient.NewStub()
	}
	return searchclient.NewHTTPClient(cfg.SearchBaseURL, cfg.SearchAPIKey, cfg.SearchTimeout)
}

// newLLMClient returns the production chat-completions HTTP client if
// LLM_API_KEY is set, otherwise an in-process stub.
func newLLMClient(cfg config.Config, logger *slog.Logger) llmclient.Client {
	if cfg.LLMAPIKey == "" {
		return llmclient.NewStub()
	}
	return llmclient.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
