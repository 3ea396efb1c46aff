package files

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	rec FileRecord
	seq uint64
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	seq  uint64
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]memoryEntry),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Insert stores rec under a fresh id.
func (r *MemoryRepo) Insert(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, err
	}
	if err := validateRecord(rec); err != nil {
		return FileRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec.ID = uuid.NewString()
	rec.CreatedAt = r.now()
	r.data[rec.ID] = memoryEntry{rec: rec, seq: r.seq}
	return rec, nil
}

// ListNewestFirst returns every record ordered by CreatedAt descending.
// Records sharing a timestamp come back in reverse insertion order.
func (r *MemoryRepo) ListNewestFirst(ctx context.Context) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entries := make([]memoryEntry, 0, len(r.data))
	for _, e := range r.data {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].rec.CreatedAt.Equal(entries[j].rec.CreatedAt) {
			return entries[i].rec.CreatedAt.After(entries[j].rec.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	out := make([]FileRecord, len(entries))
	for i := range entries {
		out[i] = entries[i].rec
	}
	return out, nil
}

// GetByID returns the record with the given id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.data[id]
	if !ok {
		return FileRecord{}, ErrNotFound
	}
	return e.rec, nil
}

// DeleteByID removes the record with the given id.
func (r *MemoryRepo) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
