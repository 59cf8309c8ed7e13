// internal/database/store.go
package database

import (
	"context"
	"errors"

	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

// ErrNotFound indicates a requested session is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a write lost an optimistic concurrency race or
// collided with an existing key.
var ErrConflict = errors.New("record conflict")

// Store persists sessions and their players.
//
// LoadSession returns copies the caller may mutate freely. SaveSession is
// conditional on the version the session was loaded at: it succeeds only if
// no other writer has saved in between, and bumps sess.Version on success.
type Store interface {
	CreateSession(ctx context.Context, sess *models.Session) error
	LoadSession(ctx context.Context, id string) (*models.Session, []models.Player, error)
	SaveSession(ctx context.Context, sess *models.Session, players []models.Player) error
	Close() error
}
