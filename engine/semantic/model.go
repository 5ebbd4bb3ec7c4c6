package semantic

// Record is one indexed chunk: the readable chunk ID ("<file>:<ordinal>"),
// its embedding, the embedding text, and the chunk metadata.
type Record struct {
	ID        string
	Embedding []float32
	Text      string
	Meta      map[string]string
}

// Hit is one raw nearest neighbor. Distance is a cosine distance
// (1 - similarity); hits are returned in ascending distance order.
type Hit struct {
	ID       string
	Text     string
	Meta     map[string]string
	Distance float64
}
