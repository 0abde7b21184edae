package storage

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"flowboard/internal/config"
	"flowboard/internal/domain"
)

// Open builds the document store selected by cfg.Driver. The store is not
// dialed yet; callers run Init before first use.
func Open(cfg config.StorageConfig, logger *zap.Logger) (domain.DocumentStore, error) {
	switch cfg.Driver {
	case domain.StoreDriverSQLite, "":
		return NewSQLiteStore(cfg.Path, logger)
	case domain.StoreDriverMySQL:
		return NewMySQLStore(cfg.DSN, logger)
	case domain.StoreDriverPostgres:
		return NewPostgresStore(cfg.DSN, logger)
	case domain.StoreDriverMongoDB:
		return NewMongoStore(cfg.DSN, cfg.Database, logger)
	case domain.StoreDriverRedis:
		return NewRedisStore(&redis.Options{
			Addr:     cfg.DSN,
			Password: cfg.Password,
			DB:       cfg.DB,
		}, cfg.Namespace, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
