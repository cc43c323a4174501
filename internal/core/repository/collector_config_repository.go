package repository

import (
	"context"
	"encoding/json"
)

// CollectorConfigRepository stores the collector's JSON configuration as an
// opaque document
type CollectorConfigRepository interface {
	Load(ctx context.Context) (json.RawMessage, error)
	Save(ctx context.Context, document json.RawMessage) error
}
