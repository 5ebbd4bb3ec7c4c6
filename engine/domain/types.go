// Package domain holds the shared types and error taxonomy of the
// knowledge-base search service.
package domain

import "strconv"

// ChunkMeta is the provenance metadata attached to every chunk.
type ChunkMeta struct {
	// Source is the document filename the chunk came from.
	Source string `json:"source"`
	// Section is the title of the markdown section, empty for preamble text.
	Section string `json:"section"`
	// Images is a comma-joined, order-preserving list of image filenames
	// referenced by the chunk. Empty when the chunk references no images.
	Images string `json:"images,omitempty"`
}

// Chunk is a retrieval-sized passage of text plus its provenance.
// Text is the cleaned form used for embedding: image markup is replaced
// by placeholders.
type Chunk struct {
	Text string
	Meta ChunkMeta
}

// ChunkID returns the index identifier of the chunk at the given 0-based
// ordinal within its document, e.g. "guide.md:3". IDs are deterministic
// for a given document set, so a reindex of unchanged content reproduces
// the same identifiers.
func ChunkID(source string, ordinal int) string {
	return source + ":" + strconv.Itoa(ordinal)
}

// Document is a named unit of raw markdown content.
type Document struct {
	Name    string
	Content string
}

// SearchResult is one formatted nearest-neighbor hit. Relevance is
// 1 - distance, rounded to three decimals; rank 1 is the most similar.
type SearchResult struct {
	Rank      int     `json:"rank"`
	Source    string  `json:"source"`
	Section   string  `json:"section"`
	Relevance float64 `json:"relevance"`
	Content   string  `json:"content"`
}

// ImageAsset is an image resolved from the asset directory, ready to be
// attached to a response. Not cached across requests.
type ImageAsset struct {
	// Data holds the raw image bytes; JSON marshalling emits them base64.
	Data []byte `json:"data"`
	// MimeType is guessed from the filename extension.
	MimeType string `json:"mimeType"`
}

// FileReport describes one ingested document.
type FileReport struct {
	File   string `json:"file"`
	Chunks int    `json:"chunks"`
}

// Report summarises a full reindex pass.
type Report struct {
	Files   int          `json:"files"`
	Chunks  int          `json:"chunks"`
	Details []FileReport `json:"details"`
}

// DocumentInfo is one entry of the document listing: a source file and
// how many chunks it contributed to the index.
type DocumentInfo struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// DocumentList is the response of the list_documents operation.
type DocumentList struct {
	Documents   []DocumentInfo `json:"documents"`
	TotalChunks int            `json:"total_chunks"`
}
