package domain

import "context"

// StoreDriver names a persistence backend.
type StoreDriver string

const (
	StoreDriverSQLite   StoreDriver = "sqlite"
	StoreDriverMySQL    StoreDriver = "mysql"
	StoreDriverPostgres StoreDriver = "postgres"
	StoreDriverMongoDB  StoreDriver = "mongodb"
	StoreDriverRedis    StoreDriver = "redis"
)

// Document is a board record as the store sees it: summary columns that can
// be indexed and projected, plus the canonical JSON body of the board.
type Document struct {
	BoardID     string
	Name        string
	Description string
	NodeCount   int
	EdgeCount   int
	CreatedAt   string
	UpdatedAt   string
	Body        []byte
}

// Summary projects the document down to its list item without reading Body.
func (d *Document) Summary() BoardListItem {
	return BoardListItem{
		BoardID:     d.BoardID,
		Name:        d.Name,
		Description: d.Description,
		NodeCount:   d.NodeCount,
		EdgeCount:   d.EdgeCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// Usage is a best-effort storage estimate in bytes. Quota 0 means unknown.
type Usage struct {
	Used  int64 `json:"used"`
	Quota int64 `json:"quota"`
}

// DocumentStore is the only component that touches a storage backend.
// Put and Delete are atomic per record; Get returns nil, nil when absent.
// EstimateUsage never fails: unsupported backends return nil, nil.
type DocumentStore interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	GetAll(ctx context.Context) ([]Document, error)
	Summaries(ctx context.Context) ([]BoardListItem, error)
	Delete(ctx context.Context, id string) error
	EstimateUsage(ctx context.Context) (*Usage, error)
	Close() error
}
