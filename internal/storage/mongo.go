package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"flowboard/internal/domain"
)

const mongoCollection = "boards"

// mongoRecord is the stored shape of a board. The body stays a JSON string
// so the board round-trips byte for byte.
type mongoRecord struct {
	BoardID     string `bson:"_id"`
	Name        string `bson:"name"`
	Description string `bson:"description"`
	NodeCount   int    `bson:"nodeCount"`
	EdgeCount   int    `bson:"edgeCount"`
	CreatedAt   string `bson:"createdAt"`
	UpdatedAt   string `bson:"updatedAt"`
	Body        string `bson:"body,omitempty"`
}

func (r *mongoRecord) document() *domain.Document {
	return &domain.Document{
		BoardID:     r.BoardID,
		Name:        r.Name,
		Description: r.Description,
		NodeCount:   r.NodeCount,
		EdgeCount:   r.EdgeCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Body:        []byte(r.Body),
	}
}

// MongoStore keeps boards in a single MongoDB collection keyed by board id.
type MongoStore struct {
	uri    string
	dbName string
	logger *zap.Logger

	mu     sync.Mutex
	client *mongo.Client
}

// NewMongoStore creates a store for uri. Nothing is dialed until Init.
func NewMongoStore(uri, database string, logger *zap.Logger) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}
	if database == "" {
		database = "flowboard"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoStore{uri: uri, dbName: database, logger: logger.With(zap.String("store", "mongodb"))}, nil
}

func (m *MongoStore) Init(ctx context.Context) error {
	_, err := m.collection(ctx)
	return err
}

func (m *MongoStore) collection(ctx context.Context) (*mongo.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client.Database(m.dbName).Collection(mongoCollection), nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(m.uri))
	if err != nil {
		return nil, domain.Unavailable("connect mongodb", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, domain.Unavailable("ping mongodb", err)
	}

	coll := client.Database(m.dbName).Collection(mongoCollection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, domain.Unavailable("create mongodb indexes", err)
	}

	m.client = client
	return coll, nil
}

func (m *MongoStore) Put(ctx context.Context, doc *domain.Document) error {
	coll, err := m.collection(ctx)
	if err != nil {
		return err
	}
	rec := mongoRecord{
		BoardID:     doc.BoardID,
		Name:        doc.Name,
		Description: doc.Description,
		NodeCount:   doc.NodeCount,
		EdgeCount:   doc.EdgeCount,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		Body:        string(doc.Body),
	}
	_, err = coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: doc.BoardID}}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return domain.TxFailed("put board "+doc.BoardID, err)
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		return nil, err
	}
	var rec mongoRecord
	err = coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.TxFailed("get board "+id, err)
	}
	return rec.document(), nil
}

func (m *MongoStore) GetAll(ctx context.Context) ([]domain.Document, error) {
	recs, err := m.find(ctx, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(recs))
	for i := range recs {
		docs = append(docs, *recs[i].document())
	}
	return docs, nil
}

func (m *MongoStore) Summaries(ctx context.Context) ([]domain.BoardListItem, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: "body", Value: 0}}).
		SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	recs, err := m.find(ctx, opts)
	if err != nil {
		return nil, err
	}
	items := make([]domain.BoardListItem, 0, len(recs))
	for i := range recs {
		items = append(items, recs[i].document().Summary())
	}
	return items, nil
}

func (m *MongoStore) find(ctx context.Context, opts *options.FindOptionsBuilder) ([]mongoRecord, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, domain.TxFailed("list boards", err)
	}
	defer cursor.Close(ctx)

	var recs []mongoRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, domain.TxFailed("list boards", err)
	}
	return recs, nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	coll, err := m.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return domain.TxFailed("delete board "+id, err)
	}
	return nil
}

// EstimateUsage reports the collection's data plus index size. Quota is
// left at zero since MongoDB does not expose one.
func (m *MongoStore) EstimateUsage(ctx context.Context) (*domain.Usage, error) {
	coll, err := m.collection(ctx)
	if err != nil {
		m.logger.Warn("usage estimate unavailable", zap.Error(err))
		return nil, nil
	}
	var stats bson.M
	err = coll.Database().RunCommand(ctx, bson.D{{Key: "collStats", Value: mongoCollection}}).Decode(&stats)
	if err != nil {
		m.logger.Warn("usage estimate failed", zap.Error(err))
		return nil, nil
	}
	return &domain.Usage{Used: bsonInt(stats["size"]) + bsonInt(stats["totalIndexSize"])}, nil
}

func (m *MongoStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.client.Disconnect(ctx)
	m.client = nil
	return err
}

// bsonInt widens the numeric types collStats may return.
func bsonInt(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
