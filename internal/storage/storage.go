package storage

import (
	"context"
	"time"
)

// Service stores task snapshots in remote object storage.
type Service interface {
	PutObject(ctx context.Context, bucket, key string, body []byte) (string, error)
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
