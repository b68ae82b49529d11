package vector

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantRepository implements Repository using Qdrant over gRPC.
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
	storeBatch  int
}

// NewQdrant creates a Qdrant-backed repository. storeBatch <= 0 selects
// DefaultStoreBatch.
func NewQdrant(ctx context.Context, host string, port int, collection string, dimension, storeBatch int) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", ErrStore, addr, err)
	}
	if storeBatch <= 0 {
		storeBatch = DefaultStoreBatch
	}
	return &QdrantRepository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   dimension,
		storeBatch:  storeBatch,
	}, nil
}

// EnsureCollection creates the collection with a cosine-distance vector index
// when it does not exist yet.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	list, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %v", ErrStore, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == r.collection {
			return nil
		}
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", ErrStore, r.collection, err)
	}
	return nil
}

// Upsert writes documents in sub-batches of at most storeBatch records.
// Sub-batches already written stay written if a later one fails.
func (r *QdrantRepository) Upsert(ctx context.Context, docs []Document) error {
	for start := 0; start < len(docs); start += r.storeBatch {
		end := start + r.storeBatch
		if end > len(docs) {
			end = len(docs)
		}
		if err := r.upsertBatch(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *QdrantRepository) upsertBatch(ctx context.Context, docs []Document) error {
	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		if len(d.Vector) != r.dimension {
			return fmt.Errorf("%w: document %s has dimension %d, collection expects %d", ErrStore, d.ID, len(d.Vector), r.dimension)
		}
		payload := map[string]*pb.Value{
			"content": {Kind: &pb.Value_StringValue{StringValue: d.Content}},
		}
		for k, v := range d.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: d.Vector}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %d points: %v", ErrStore, len(points), err)
	}
	return nil
}

// Search finds the top-k most similar documents.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStore, err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		results[i] = scoredPointToResult(pt)
	}
	return results, nil
}

// SearchMMR fetches fetchK candidates with their vectors and re-ranks them
// client-side with maximal marginal relevance.
func (r *QdrantRepository) SearchMMR(ctx context.Context, vector []float32, topK, fetchK int, lambda float64) ([]SearchResult, error) {
	if fetchK < topK {
		fetchK = topK
	}
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(fetchK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStore, err)
	}

	points := resp.GetResult()
	candidates := make([][]float32, len(points))
	for i, pt := range points {
		candidates[i] = pt.GetVectors().GetVector().GetData()
	}

	order := maximalMarginalRelevance(vector, candidates, lambda, topK)
	results := make([]SearchResult, len(order))
	for i, idx := range order {
		results[i] = scoredPointToResult(points[idx])
	}
	return results, nil
}

// Count returns the exact number of records in the collection.
func (r *QdrantRepository) Count(ctx context.Context) (int64, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStore, err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

func scoredPointToResult(pt *pb.ScoredPoint) SearchResult {
	content := ""
	meta := make(map[string]string)
	for k, v := range pt.GetPayload() {
		if k == "content" {
			content = v.GetStringValue()
		} else {
			meta[k] = v.GetStringValue()
		}
	}
	return SearchResult{
		ID:       pt.GetId().GetUuid(),
		Score:    pt.GetScore(),
		Content:  content,
		Metadata: meta,
	}
}
