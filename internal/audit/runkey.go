// Package audit assembles immutable audit records and enforces one record
// per run key.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var runKeyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("orderaudit/run"))

// NewRunKey derives the deterministic run key for a folder triggered at t.
// The trigger time is taken at microsecond precision, the precision records
// are stored with, so a record's id can be re-derived from its folder and
// timestamp.
func NewRunKey(folderID string, triggeredAt time.Time) uuid.UUID {
	name := folderID + "|" + triggeredAt.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
	return uuid.NewSHA1(runKeyNamespace, []byte(name))
}

// MemoryRegistry is a process-local run key registry.
type MemoryRegistry struct {
	mu   sync.Mutex
	keys map[uuid.UUID]struct{}
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{keys: make(map[uuid.UUID]struct{})}
}

func (r *MemoryRegistry) Reserve(_ context.Context, key uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key]; ok {
		return false, nil
	}
	r.keys[key] = struct{}{}
	return true, nil
}

func (r *MemoryRegistry) Release(_ context.Context, key uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
	return nil
}
