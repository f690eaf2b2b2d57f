package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 768
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository handles vector operations with Qdrant
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository creates a new QdrantRepository.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key).
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption

	useTLS := cfg.UseTLS || cfg.APIKey != ""
	if useTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// Dimension returns the configured vector dimension.
func (r *QdrantRepository) Dimension() int {
	return r.vectorDimension
}

// EnsureCollection creates the collection if it doesn't exist. An existing
// collection with a different vector size is a hard error rather than a
// silent mismatch.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(r.vectorDimension) {
				return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
			}
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}

	config := info.GetConfig()
	if config == nil {
		return 0, false
	}

	params := config.GetParams()
	if params == nil {
		return 0, false
	}

	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if vectorParams == nil {
				continue
			}
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// ChunkPayload represents the payload stored with each chunk vector.
type ChunkPayload struct {
	IdeaID       string `json:"idea_id"`
	UserID       string `json:"user_id"`
	FileName     string `json:"file_name"`
	ChunkIndex   int    `json:"chunk_index"`
	OriginalText string `json:"original_text"`
	ArxivID      string `json:"arxiv_id,omitempty"`
	Year         int    `json:"year,omitempty"`
	AuthorsRaw   string `json:"authors_raw,omitempty"`
}

// UpsertChunk inserts or updates one chunk vector with its payload. Point ids
// are fresh UUIDs; idempotency comes from the dedup count on (idea_id,
// file_name), not from point identity.
func (r *QdrantRepository) UpsertChunk(ctx context.Context, vector []float32, payload *ChunkPayload) error {
	if len(vector) != r.vectorDimension {
		return fmt.Errorf("vector has dimension %d, collection expects %d", len(vector), r.vectorDimension)
	}

	points := []*pb.PointStruct{
		{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{
					Uuid: uuid.NewString(),
				},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{
						Data: vector,
					},
				},
			},
			Payload: chunkPayloadValues(payload),
		},
	}

	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

func chunkPayloadValues(payload *ChunkPayload) map[string]*pb.Value {
	values := map[string]*pb.Value{
		"idea_id":       {Kind: &pb.Value_StringValue{StringValue: payload.IdeaID}},
		"user_id":       {Kind: &pb.Value_StringValue{StringValue: payload.UserID}},
		"file_name":     {Kind: &pb.Value_StringValue{StringValue: payload.FileName}},
		"chunk_index":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(payload.ChunkIndex)}},
		"original_text": {Kind: &pb.Value_StringValue{StringValue: payload.OriginalText}},
	}
	if payload.ArxivID != "" {
		values["arxiv_id"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: payload.ArxivID}}
	}
	if payload.Year != 0 {
		values["year"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(payload.Year)}}
	}
	if payload.AuthorsRaw != "" {
		values["authors_raw"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: payload.AuthorsRaw}}
	}
	return values
}

// SearchResult represents a search result from Qdrant
type SearchResult struct {
	ID      string
	Score   float32
	Payload *ChunkPayload
}

// Search performs a vector similarity search across the whole collection.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = SearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parseChunkPayload(scored.Payload),
		}
	}

	return results, nil
}

func parseChunkPayload(payload map[string]*pb.Value) *ChunkPayload {
	if payload == nil {
		return nil
	}

	p := &ChunkPayload{}
	if v, ok := payload["idea_id"]; ok {
		p.IdeaID = v.GetStringValue()
	}
	if v, ok := payload["user_id"]; ok {
		p.UserID = v.GetStringValue()
	}
	if v, ok := payload["file_name"]; ok {
		p.FileName = v.GetStringValue()
	}
	if v, ok := payload["chunk_index"]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload["original_text"]; ok {
		p.OriginalText = v.GetStringValue()
	}
	if v, ok := payload["arxiv_id"]; ok {
		p.ArxivID = v.GetStringValue()
	}
	if v, ok := payload["year"]; ok {
		p.Year = int(v.GetIntegerValue())
	}
	if v, ok := payload["authors_raw"]; ok {
		p.AuthorsRaw = v.GetStringValue()
	}

	return p
}

// ideaFileFilter matches all points belonging to one file of one idea.
func ideaFileFilter(ideaID, fileName string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "idea_id",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: ideaID},
						},
					},
				},
			},
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "file_name",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: fileName},
						},
					},
				},
			},
		},
	}
}

// CountByFileName counts points stored for one file of one idea. A non-zero
// count means the file was already embedded and a redelivered event can skip
// it.
func (r *QdrantRepository) CountByFileName(ctx context.Context, ideaID, fileName string) (uint64, error) {
	exact := true
	resp, err := r.pointsClient.Count(ctx, &pb.CountPoints{
		CollectionName: r.collectionName,
		Filter:         ideaFileFilter(ideaID, fileName),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// ideaFilter matches every point belonging to one idea, across all of its
// files and references.
func ideaFilter(ideaID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "idea_id",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: ideaID},
						},
					},
				},
			},
		},
	}
}

// DeleteByIdeaID removes every point belonging to an idea.
func (r *QdrantRepository) DeleteByIdeaID(ctx context.Context, ideaID string) error {
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: ideaFilter(ideaID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}
