// internal/database/memory.go
package database

import (
	"context"
	"sync"

	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

type memRecord struct {
	session *models.Session
	players []models.Player
}

// MemoryStore is an in-process Store. It honours the same versioning
// contract as SQLStore and never hands out shared references.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memRecord)}
}

// CreateSession stores a copy of sess. An existing id yields ErrConflict.
func (m *MemoryStore) CreateSession(_ context.Context, sess *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; ok {
		return ErrConflict
	}
	m.sessions[sess.ID] = memRecord{session: sess.Clone()}
	return nil
}

// LoadSession returns copies of the stored session and players.
func (m *MemoryStore) LoadSession(_ context.Context, id string) (*models.Session, []models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return rec.session.Clone(), models.ClonePlayers(rec.players), nil
}

// SaveSession replaces the stored record if sess.Version still matches.
func (m *MemoryStore) SaveSession(_ context.Context, sess *models.Session, players []models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if rec.session.Version != sess.Version {
		return ErrConflict
	}
	sess.Version++
	m.sessions[sess.ID] = memRecord{session: sess.Clone(), players: models.ClonePlayers(players)}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
