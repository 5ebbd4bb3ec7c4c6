// Package main implements the knowledge-base search server: it reindexes
// the markdown document set at startup, then serves read-only semantic
// search over MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nats-io/nats.go"

	"github.com/unicitykb/ragserve/engine/assets"
	"github.com/unicitykb/ragserve/engine/domain"
	"github.com/unicitykb/ragserve/engine/ingest"
	"github.com/unicitykb/ragserve/engine/rag"
	"github.com/unicitykb/ragserve/engine/segment"
	"github.com/unicitykb/ragserve/engine/semantic"
	"github.com/unicitykb/ragserve/pkg/config"
	"github.com/unicitykb/ragserve/pkg/docsource"
	"github.com/unicitykb/ragserve/pkg/fn"
	"github.com/unicitykb/ragserve/pkg/metrics"
	"github.com/unicitykb/ragserve/pkg/mid"
	"github.com/unicitykb/ragserve/pkg/natsutil"
	"github.com/unicitykb/ragserve/pkg/ollama"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfgPath := os.Getenv("CONFIG_FILE")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// server bundles the index handle with everything built around it. The
// collection handle is owned here and passed by reference; reindexes are
// serialized behind reindexMu so queries never race a writer phase.
type server struct {
	cfg      *config.Config
	store    *semantic.VectorStore
	embedder *ollama.EmbedClient
	svc      *rag.Service
	logger   *slog.Logger

	reindexMu sync.Mutex

	met        *metrics.Registry
	mSearches  *metrics.Counter
	mSearchErr *metrics.Counter
	mSearchDur *metrics.Histogram
	mReindexes *metrics.Counter
	mChunks    *metrics.Gauge
	mDegraded  *metrics.Gauge
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(cfg.QdrantAddr, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	embedder := ollama.NewEmbedClient(cfg.Ollama.URL, cfg.Ollama.Model)
	resolver := assets.New(filepath.Join(cfg.DataDir, "pic"))

	met := metrics.New()
	s := &server{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		logger:   logger,
		met:      met,
		svc: rag.New(embedder, store, resolver,
			rag.Options{SearchTimeout: time.Duration(cfg.SearchTimeoutSecs) * time.Second}, logger),
		mSearches:  met.Counter("kb_search_requests_total", "Search tool calls"),
		mSearchErr: met.Counter("kb_search_errors_total", "Search tool failures"),
		mSearchDur: met.Histogram("kb_search_duration_seconds", "Search latency", nil),
		mReindexes: met.Counter("kb_reindex_total", "Completed reindex passes"),
		mChunks:    met.Gauge("kb_index_chunks", "Chunks in the index"),
		mDegraded:  met.Gauge("kb_degraded", "1 when started without a document directory"),
	}

	// Writer phase: the index is rebuilt to completion before the server
	// accepts its first query.
	if err := s.startupIngest(ctx); err != nil {
		return err
	}

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()

		sub, err := natsutil.Subscribe(nc, cfg.NATS.ReindexSubject, s.handleReindexTrigger)
		if err != nil {
			return fmt.Errorf("nats subscribe %s: %w", cfg.NATS.ReindexSubject, err)
		}
		defer sub.Unsubscribe()
		logger.Info("reindex trigger armed", "subject", cfg.NATS.ReindexSubject)
	}

	mcpSrv := s.newMCPServer()
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return mcpSrv }, nil))
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("ragserve"),
		mid.RateLimit(cfg.Limiter.RPS, cfg.Limiter.Burst),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "endpoint", "/mcp")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// startupIngest rebuilds the index from the document directory. A missing
// directory is a degraded start, not a crash: the collection is created
// empty and every search returns an empty result set.
func (s *server) startupIngest(ctx context.Context) error {
	src, err := docsource.NewDir(s.cfg.DataDir)
	if err != nil {
		if domain.KindOf(err) != domain.KindConfiguration {
			return err
		}
		s.logger.Warn("data dir missing, starting with empty index", "dir", s.cfg.DataDir)
		s.mDegraded.Set(1)
		if err := s.store.EnsureCollection(ctx, s.cfg.Ollama.Dims); err != nil {
			return err
		}
		return nil
	}

	s.logger.Info("indexing", "dir", s.cfg.DataDir)
	report, err := s.reindex(ctx, src)
	if err != nil {
		return err
	}
	s.logger.Info("indexed", "files", report.Files, "chunks", report.Chunks)
	for _, d := range report.Details {
		s.logger.Info("indexed file", "file", d.File, "chunks", d.Chunks)
	}
	return nil
}

// reindex runs one full ingestion pass. Serialized: a second trigger
// waits for the current pass instead of interleaving writers.
func (s *server) reindex(ctx context.Context, src docsource.Source) (domain.Report, error) {
	s.reindexMu.Lock()
	defer s.reindexMu.Unlock()

	report, err := ingest.Reindex(ctx, ingest.Deps{
		Source:   src,
		Embedder: s.embedder,
		Index:    s.store,
		Dims:     s.cfg.Ollama.Dims,
		Segment:  segment.Options{},
		Retry:    fn.DefaultRetry,
		Logger:   s.logger,
	})
	if err != nil {
		return domain.Report{}, err
	}
	s.mReindexes.Inc()
	s.mChunks.Set(int64(report.Chunks))
	return report, nil
}

// reindexTrigger is the payload of the explicit-reindex NATS subject.
type reindexTrigger struct {
	Reason string `json:"reason,omitempty"`
}

func (s *server) handleReindexTrigger(ctx context.Context, trig reindexTrigger) {
	s.logger.Info("explicit reindex requested", "reason", trig.Reason)
	src, err := docsource.NewDir(s.cfg.DataDir)
	if err != nil {
		s.logger.Error("reindex trigger: document source unavailable", "err", err)
		return
	}
	report, err := s.reindex(ctx, src)
	if err != nil {
		s.logger.Error("reindex trigger: pass failed", "err", err)
		return
	}
	s.logger.Info("reindex complete", "files", report.Files, "chunks", report.Chunks)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
