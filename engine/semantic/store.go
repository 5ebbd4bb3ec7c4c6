// Package semantic is the sole owner of all Qdrant operations: collection
// lifecycle, chunk upserts, and nearest-neighbor queries.
package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// payload keys stored with every point.
const (
	payloadContent = "content"
	payloadChunkID = "chunk_id"
)

// VectorStore wraps a Qdrant collection holding the knowledge-base chunks.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// CreateCollection creates the collection with cosine distance.
func (v *VectorStore) CreateCollection(ctx context.Context, dims int) error {
	_, err := v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// EnsureCollection creates the collection if it doesn't exist. Used by the
// degraded startup path, where an empty but queryable index is wanted.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}
	return v.CreateCollection(ctx, dims)
}

// DropCollection deletes the collection. A collection that does not exist
// is not an error: the drop is idempotent so a first-ever reindex behaves
// the same as a repeat one.
func (v *VectorStore) DropCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("semantic: drop collection %s: %w", v.collection, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "doesn't exist")
}

// Upsert stores chunk records. Point IDs are deterministic UUIDs derived
// from the chunk ID, so re-ingesting identical content is idempotent.
func (v *VectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]*pb.Value, len(r.Meta)+2)
		payload[payloadContent] = stringValue(r.Text)
		payload[payloadChunkID] = stringValue(r.ID)
		for k, val := range r.Meta {
			payload[k] = stringValue(val)
		}

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointUUID(r.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Query performs k-NN similarity search and returns hits in ascending
// distance order. Qdrant reports cosine similarity; it is converted to a
// distance here so callers only ever see the distance contract.
func (v *VectorStore) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = hitFromPayload(r.GetPayload(), scoreToDistance(r.GetScore()))
	}
	return hits, nil
}

// Count returns the number of points in the collection.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Payloads scrolls the whole collection and returns every point's metadata.
// Used by the document listing, never by the query path.
func (v *VectorStore) Payloads(ctx context.Context) ([]map[string]string, error) {
	const pageSize = 256

	var all []map[string]string
	var offset *pb.PointId
	for {
		limit := uint32(pageSize)
		resp, err := v.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: v.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
			WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false}},
		})
		if err != nil {
			return nil, fmt.Errorf("semantic: scroll: %w", err)
		}
		for _, p := range resp.GetResult() {
			meta := make(map[string]string, len(p.GetPayload()))
			for k, val := range p.GetPayload() {
				meta[k] = val.GetStringValue()
			}
			all = append(all, meta)
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			return all, nil
		}
	}
}

// pointUUID derives a stable point ID from a chunk ID.
func pointUUID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// scoreToDistance converts a cosine similarity score into a distance.
func scoreToDistance(score float32) float64 {
	return 1 - float64(score)
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func hitFromPayload(payload map[string]*pb.Value, distance float64) Hit {
	h := Hit{Distance: distance, Meta: make(map[string]string)}
	for k, val := range payload {
		s := val.GetStringValue()
		switch k {
		case payloadContent:
			h.Text = s
		case payloadChunkID:
			h.ID = s
		default:
			h.Meta[k] = s
		}
	}
	return h
}
