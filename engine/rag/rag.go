// Package rag turns raw nearest-neighbor hits into ranked, de-duplicated,
// image-enriched search responses, and provides the document listing.
package rag

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/unicitykb/ragserve/engine/domain"
	"github.com/unicitykb/ragserve/engine/semantic"
)

// Searcher abstracts the embedding index's read side.
type Searcher interface {
	Query(ctx context.Context, embedding []float32, k int) ([]semantic.Hit, error)
	Count(ctx context.Context) (int, error)
	Payloads(ctx context.Context) ([]map[string]string, error)
}

// Embedder computes the query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ImageResolver maps image filenames to loadable assets.
type ImageResolver interface {
	Resolve(ctx context.Context, filename string) (domain.ImageAsset, error)
}

// Options configures the retrieval behaviour.
type Options struct {
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{SearchTimeout: 5 * time.Second}
}

// Service answers search and listing requests against a read-only index.
// It holds no mutable state of its own; a single instance serves all
// in-flight queries.
type Service struct {
	embed  Embedder
	index  Searcher
	images ImageResolver
	opts   Options
	logger *slog.Logger
}

// New creates a Service.
func New(embed Embedder, index Searcher, images ImageResolver, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embed:  embed,
		index:  index,
		images: images,
		opts:   opts,
		logger: logger,
	}
}

// Search embeds the query, fetches the nearest neighbors, and formats them
// into ranked results plus the images they reference. An empty index or an
// empty neighbor set yields empty slices, never an error.
func (s *Service) Search(ctx context.Context, query string, n int) ([]domain.SearchResult, []domain.ImageAsset, error) {
	if err := domain.ValidateQuery(query); err != nil {
		return nil, nil, err
	}
	n = domain.ClampNResults(n)

	count, err := s.index.Count(ctx)
	if err != nil {
		return nil, nil, domain.E(domain.KindInternal, "rag.Search", err)
	}
	// Never ask for more neighbors than exist, and never for zero.
	n = min(n, max(count, 1))

	embedding, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, nil, domain.E(domain.KindInternal, "rag.Search", err)
	}

	searchCtx := ctx
	if s.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.opts.SearchTimeout)
		defer cancel()
	}
	hits, err := s.index.Query(searchCtx, embedding, n)
	if err != nil {
		return nil, nil, domain.E(domain.KindOf(err), "rag.Search", err)
	}
	s.logger.Info("search done", "query_len", len(query), "hits", len(hits))

	if len(hits) == 0 {
		return []domain.SearchResult{}, []domain.ImageAsset{}, nil
	}

	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = domain.SearchResult{
			Rank:      i + 1,
			Source:    h.Meta["source"],
			Section:   h.Meta["section"],
			Relevance: roundRelevance(1 - h.Distance),
			Content:   h.Text,
		}
	}

	images, err := s.collectImages(ctx, hits)
	if err != nil {
		return nil, nil, err
	}
	return results, images, nil
}

// collectImages resolves every distinct image referenced by the hits, in
// first-seen order across the ranked results. Missing files are skipped
// silently; anything else aborts the query so the caller never receives a
// malformed partial attachment.
func (s *Service) collectImages(ctx context.Context, hits []semantic.Hit) ([]domain.ImageAsset, error) {
	var images []domain.ImageAsset
	seen := make(map[string]bool)
	for _, h := range hits {
		for _, name := range strings.Split(h.Meta["images"], ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			asset, err := s.images.Resolve(ctx, name)
			if err != nil {
				if domain.IsNotFound(err) {
					s.logger.Warn("image missing, skipping", "image", name)
					continue
				}
				return nil, domain.E(domain.KindOf(err), "rag.Search", err)
			}
			images = append(images, asset)
		}
	}
	return images, nil
}

// ListDocuments reports every distinct source in the index with its chunk
// count, sorted by source name, plus the index-wide chunk total.
func (s *Service) ListDocuments(ctx context.Context) (domain.DocumentList, error) {
	payloads, err := s.index.Payloads(ctx)
	if err != nil {
		return domain.DocumentList{}, domain.E(domain.KindInternal, "rag.ListDocuments", err)
	}
	total, err := s.index.Count(ctx)
	if err != nil {
		return domain.DocumentList{}, domain.E(domain.KindInternal, "rag.ListDocuments", err)
	}

	counts := make(map[string]int)
	for _, meta := range payloads {
		src := meta["source"]
		if src == "" {
			src = "unknown"
		}
		counts[src]++
	}

	docs := make([]domain.DocumentInfo, 0, len(counts))
	for src, c := range counts {
		docs = append(docs, domain.DocumentInfo{Source: src, Chunks: c})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })

	return domain.DocumentList{Documents: docs, TotalChunks: total}, nil
}

// roundRelevance rounds to three decimals.
func roundRelevance(v float64) float64 {
	return math.Round(v*1000) / 1000
}
