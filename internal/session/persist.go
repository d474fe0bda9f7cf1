package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/pricepal/internal/models"
	"github.com/desertthunder/pricepal/internal/shared"
)

// SessionSchemaVersion is the version written with every persisted session.
//
// Version 0 is the legacy browser layout: {"state": {"user", "token", "isAuthenticated"}, "version": 0}.
const SessionSchemaVersion = 1

// DefaultRecord is the record name the session is stored under.
const DefaultRecord = "auth-storage"

// Persister stores named records. Load returns [shared.ErrNoRecord] when nothing is stored.
type Persister interface {
	Load(ctx context.Context, name string) (*models.LocalRecord, error)
	Save(ctx context.Context, rec *models.LocalRecord) error
	Delete(ctx context.Context, name string) error
}

type migration func(payload []byte) ([]byte, error)

// migrations upgrades a payload from the key version to the next one.
var migrations = map[int]migration{
	0: migrateLegacy,
}

func migrateLegacy(payload []byte) ([]byte, error) {
	var legacy struct {
		State struct {
			User  *models.User `json:"user"`
			Token string       `json:"token"`
		} `json:"state"`
	}
	if err := json.Unmarshal(payload, &legacy); err != nil {
		return nil, fmt.Errorf("legacy session: %w", err)
	}
	return json.Marshal(models.Session{User: legacy.State.User, Token: legacy.State.Token})
}

// upgrade runs payload through the migration chain until it reaches [SessionSchemaVersion].
func upgrade(version int, payload []byte) ([]byte, error) {
	if version > SessionSchemaVersion || version < 0 {
		return nil, fmt.Errorf("%w: %d", shared.ErrUnsupportedSchema, version)
	}
	for v := version; v < SessionSchemaVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from %d", shared.ErrUnsupportedSchema, v)
		}
		var err error
		if payload, err = m(payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// MemoryPersister keeps records in a map. It is safe for concurrent use.
type MemoryPersister struct {
	mu      sync.Mutex
	records map[string]models.LocalRecord
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{records: make(map[string]models.LocalRecord)}
}

func (m *MemoryPersister) Load(_ context.Context, name string) (*models.LocalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[name]
	if !ok {
		return nil, shared.ErrNoRecord
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return &rec, nil
}

func (m *MemoryPersister) Save(_ context.Context, rec *models.LocalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *rec
	stored.Payload = append([]byte(nil), rec.Payload...)
	stored.UpdatedAt = time.Now().UTC()
	m.records[rec.Name] = stored
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, name)
	return nil
}
