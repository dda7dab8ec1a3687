package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agent-relay-gateway/internal/config"
	"agent-relay-gateway/internal/models"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantClient stores embedded thread messages for semantic recall.
type QdrantClient struct {
	pointsClient      pb.PointsClient
	collectionsClient pb.CollectionsClient
	collection        string
	conn              *grpc.ClientConn

	mu    sync.Mutex
	ready bool
}

func NewQdrantClient(cfg *config.QdrantConfig) (*QdrantClient, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantClient{
		pointsClient:      pb.NewPointsClient(conn),
		collectionsClient: pb.NewCollectionsClient(conn),
		collection:        cfg.Collection,
		conn:              conn,
	}, nil
}

func (q *QdrantClient) Close() error {
	return q.conn.Close()
}

// ensureCollection creates the collection on first use, sized to the first
// vector written.
func (q *QdrantClient) ensureCollection(ctx context.Context, size int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	exists, err := q.collectionsClient.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: q.collection})
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", q.collection, err)
	}

	if !exists.GetResult().GetExists() {
		_, err = q.collectionsClient.Create(ctx, &pb.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{Size: uint64(size), Distance: pb.Distance_Cosine},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
		}
	}

	q.ready = true
	return nil
}

func (q *QdrantClient) UpsertMessage(ctx context.Context, msg models.Message, vector []float32) error {
	if err := q.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	wait := true
	_, err := q.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{
			{
				Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: msg.ID}},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}},
				},
				Payload: map[string]*pb.Value{
					"thread_id":  stringValue(msg.ThreadID),
					"role":       stringValue(msg.Role),
					"content":    stringValue(msg.Content),
					"created_at": stringValue(msg.CreatedAt.UTC().Format(time.RFC3339Nano)),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert vector for message %s: %w", msg.ID, err)
	}

	return nil
}

// SearchThread returns the topK messages of a thread closest to vector.
func (q *QdrantClient) SearchThread(ctx context.Context, threadID string, vector []float32, topK int) ([]models.Message, error) {
	resp, err := q.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Filter:         threadFilter(threadID),
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search thread %s: %w", threadID, err)
	}

	messages := make([]models.Message, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		createdAt, _ := time.Parse(time.RFC3339Nano, payload["created_at"].GetStringValue())
		messages = append(messages, models.Message{
			ID:        point.GetId().GetUuid(),
			ThreadID:  threadID,
			Role:      payload["role"].GetStringValue(),
			Content:   payload["content"].GetStringValue(),
			CreatedAt: createdAt,
		})
	}
	return messages, nil
}

func (q *QdrantClient) DeleteThreadVectors(ctx context.Context, threadID string) error {
	_, err := q.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: threadFilter(threadID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete vectors for thread %s: %w", threadID, err)
	}

	return nil
}

func (q *QdrantClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := q.collectionsClient.List(ctx, &pb.ListCollectionsRequest{})
	return err
}

func threadFilter(threadID string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{
			{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "thread_id",
						Match: &pb.Match{
							MatchValue: &pb.Match_Keyword{Keyword: threadID},
						},
					},
				},
			},
		},
	}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
