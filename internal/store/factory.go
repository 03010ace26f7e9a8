package store

import (
	"context"
	"fmt"

	mydb "github.com/TimurManjosov/jobwatch/internal/db"
)

// NewStore creates a new store based on the given store type.
// Supported types: "memory", "postgres" (dsn is a connection string),
// "sqlite" (dsn is a file path).
func NewStore(ctx context.Context, storeType, dsn string) (Store, error) {
	switch storeType {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := mydb.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := mydb.WaitReady(ctx, pool, 0); err != nil {
			pool.Close()
			return nil, err
		}
		pg := NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pg, nil
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
