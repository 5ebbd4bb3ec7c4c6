// Package ingest rebuilds the embedding index from the current document
// set. A reindex pass drops and recreates the collection, then runs every
// document through segmentation, embedding, and storage stages.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unicitykb/ragserve/engine/domain"
	"github.com/unicitykb/ragserve/engine/segment"
	"github.com/unicitykb/ragserve/engine/semantic"
	"github.com/unicitykb/ragserve/pkg/docsource"
	"github.com/unicitykb/ragserve/pkg/fn"
)

// EmbedBatchSize is the max chunks per embedding request.
const EmbedBatchSize = 100

// Embedder computes embedding vectors for chunk texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the slice of the vector store the orchestrator writes to.
type Index interface {
	DropCollection(ctx context.Context) error
	CreateCollection(ctx context.Context, dims int) error
	Upsert(ctx context.Context, records []semantic.Record) error
}

// Deps holds the external dependencies of a reindex pass.
type Deps struct {
	Source   docsource.Source
	Embedder Embedder
	Index    Index
	Dims     int
	Segment  segment.Options
	Retry    fn.RetryOpts
	Logger   *slog.Logger
}

// chunkedDoc is a document split into chunks.
type chunkedDoc struct {
	Doc    domain.Document
	Chunks []domain.Chunk
}

// embeddedDoc is a chunked document with one embedding per chunk.
type embeddedDoc struct {
	chunkedDoc
	Embeddings [][]float32
}

// newSegmentStage splits a document into chunks.
func newSegmentStage(opts segment.Options) fn.Stage[domain.Document, chunkedDoc] {
	return fn.MapStage(func(doc domain.Document) chunkedDoc {
		return chunkedDoc{
			Doc:    doc,
			Chunks: segment.Segment(doc.Content, doc.Name, opts),
		}
	})
}

// newEmbedStage embeds chunk texts in batches of EmbedBatchSize.
func newEmbedStage(embedder Embedder) fn.Stage[chunkedDoc, embeddedDoc] {
	return func(ctx context.Context, doc chunkedDoc) fn.Result[embeddedDoc] {
		embeddings := make([][]float32, 0, len(doc.Chunks))
		for i := 0; i < len(doc.Chunks); i += EmbedBatchSize {
			end := min(i+EmbedBatchSize, len(doc.Chunks))
			texts := make([]string, end-i)
			for j, c := range doc.Chunks[i:end] {
				texts[j] = c.Text
			}
			vecs, err := embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return fn.Err[embeddedDoc](fmt.Errorf("embed batch: %w", err))
			}
			embeddings = append(embeddings, vecs...)
		}
		return fn.Ok(embeddedDoc{chunkedDoc: doc, Embeddings: embeddings})
	}
}

// newStoreStage writes one document's chunks to the index in a single batch.
func newStoreStage(index Index) fn.Stage[embeddedDoc, domain.FileReport] {
	return func(ctx context.Context, doc embeddedDoc) fn.Result[domain.FileReport] {
		records := make([]semantic.Record, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			records[i] = semantic.Record{
				ID:        domain.ChunkID(doc.Doc.Name, i),
				Embedding: doc.Embeddings[i],
				Text:      chunk.Text,
				Meta:      chunkMeta(chunk),
			}
		}
		if err := index.Upsert(ctx, records); err != nil {
			return fn.Err[domain.FileReport](fmt.Errorf("vector upsert: %w", err))
		}
		return fn.Ok(domain.FileReport{File: doc.Doc.Name, Chunks: len(doc.Chunks)})
	}
}

func chunkMeta(c domain.Chunk) map[string]string {
	meta := map[string]string{
		"source":  c.Meta.Source,
		"section": c.Meta.Section,
	}
	if c.Meta.Images != "" {
		meta["images"] = c.Meta.Images
	}
	return meta
}

// Reindex drops and recreates the collection, then ingests every document
// from the source in name order. Documents yielding zero chunks are
// skipped; any read, embed, or store failure aborts the whole pass, since
// a partially rebuilt index would not match the document set the operator
// expects. The old collection is dropped before re-ingestion, so an abort
// mid-pass can leave a partial index; that limitation is deliberate and
// surfaced, not masked.
func Reindex(ctx context.Context, deps Deps) (domain.Report, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	retry := deps.Retry
	if retry.MaxAttempts == 0 {
		retry = fn.DefaultRetry
	}

	if err := deps.Index.DropCollection(ctx); err != nil {
		return domain.Report{}, domain.E(domain.KindIngestion, "ingest.Reindex", err)
	}
	if err := deps.Index.CreateCollection(ctx, deps.Dims); err != nil {
		return domain.Report{}, domain.E(domain.KindIngestion, "ingest.Reindex", err)
	}

	names, err := deps.Source.List(ctx)
	if err != nil {
		return domain.Report{}, domain.E(domain.KindIngestion, "ingest.Reindex", err)
	}

	segmentStage := fn.Named("segment", newSegmentStage(deps.Segment))
	// Embedding calls go over the network; transient failures are retried
	// before they become fatal to the pass.
	pipeline := fn.Then(
		fn.RetryStage(retry, fn.Named("embed", newEmbedStage(deps.Embedder))),
		fn.Named("store", newStoreStage(deps.Index)),
	)

	report := domain.Report{}
	for _, name := range names {
		content, err := deps.Source.Read(ctx, name)
		if err != nil {
			return domain.Report{}, domain.E(domain.KindIngestion, "ingest.Reindex", err)
		}

		chunked := segmentStage(ctx, domain.Document{Name: name, Content: content})
		doc, _ := chunked.Unwrap()
		if len(doc.Chunks) == 0 {
			log.Info("ingest: no chunks, skipping", "file", name)
			continue
		}

		fileReport, err := pipeline(ctx, doc).Unwrap()
		if err != nil {
			return domain.Report{}, domain.E(domain.KindIngestion, "ingest.Reindex", fmt.Errorf("%s: %w", name, err))
		}

		log.Info("ingest: file done", "file", name, "chunks", fileReport.Chunks)
		report.Files++
		report.Chunks += fileReport.Chunks
		report.Details = append(report.Details, fileReport)
	}

	return report, nil
}
