package files

import (
	"context"
	"fmt"
	"strings"
)

// Repo persists file records. Implementations assign ID and CreatedAt on
// Insert and return the stored record.
type Repo interface {
	Insert(ctx context.Context, rec FileRecord) (FileRecord, error)
	ListNewestFirst(ctx context.Context) ([]FileRecord, error)
	GetByID(ctx context.Context, id string) (FileRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

// Pinger is implemented by repos backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func validateRecord(rec FileRecord) error {
	switch {
	case strings.TrimSpace(rec.OriginalName) == "":
		return fmt.Errorf("%w: original name is required", ErrInvalidRecord)
	case strings.TrimSpace(rec.StorageKey) == "":
		return fmt.Errorf("%w: storage key is required", ErrInvalidRecord)
	case strings.TrimSpace(rec.ContentType) == "":
		return fmt.Errorf("%w: content type is required", ErrInvalidRecord)
	case rec.SizeBytes <= 0:
		return fmt.Errorf("%w: size must be positive", ErrInvalidRecord)
	}
	return nil
}
