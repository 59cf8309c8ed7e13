// engine_adapter.go: bridge between engine.GameState and stored sessions.
package game

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/database"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

// mutation edits a loaded session in place. Returning errUnchanged skips
// the save and hands back the loaded copy.
type mutation func(sess *models.Session, players *[]models.Player) error

var errUnchanged = errors.New("unchanged")

// seedFromID derives the engine seed from the first eight bytes of a game id.
func seedFromID(id uuid.UUID) uint64 {
	return binary.BigEndian.Uint64(id[:8])
}

// sessionLock serializes writes to one session within this process.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession blocks until the caller holds sessionID's lock and returns the
// release func. Entries are dropped once no caller holds or waits on them.
// Writers in other processes are caught by the version check instead.
func (s *SessionService) lockSession(sessionID string) (unlock func()) {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

// load reads a session, mapping a missing row to ErrSessionNotFound.
func (s *SessionService) load(ctx context.Context, sessionID string) (*models.Session, []models.Player, error) {
	sess, players, err := s.store.LoadSession(ctx, sessionID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sess, players, nil
}

// mutate runs fn against the latest stored copy of a session and saves the
// result. A save that loses a version race is retried from a fresh load up
// to maxRetries times, after which ErrTransient is returned. Nothing is
// written when fn fails.
func (s *SessionService) mutate(ctx context.Context, sessionID, op string, fn mutation) (*models.Session, []models.Player, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		sess, players, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, nil, err
		}

		if err := fn(sess, &players); err != nil {
			if errors.Is(err, errUnchanged) {
				return sess, players, nil
			}
			s.logRejected(sessionID, op, err)
			return nil, nil, err
		}

		s.syncPlayers(sess, players)
		err = s.store.SaveSession(ctx, sess, players)
		if err == nil {
			return sess, players, nil
		}
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		if !errors.Is(err, database.ErrConflict) {
			return nil, nil, fmt.Errorf("save session %s: %w", sessionID, err)
		}

		lastErr = err
		log.WithFields(log.Fields{
			"session": sessionID,
			"op":      op,
			"attempt": attempt,
		}).Debug("game: version conflict, retrying")
		if attempt < s.maxRetries {
			if err := s.sleep(ctx, attempt); err != nil {
				return nil, nil, err
			}
		}
	}

	log.WithFields(log.Fields{"session": sessionID, "op": op}).Warn("game: giving up after repeated version conflicts")
	return nil, nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrTransient, op, s.maxRetries, lastErr)
}

// sleep waits a jittered, linearly growing delay or until ctx is done.
func (s *SessionService) sleep(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*s.retryBackoff + time.Duration(rand.Int64N(int64(s.retryBackoff)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *SessionService) logRejected(sessionID, op string, err error) {
	entry := log.WithError(err).WithFields(log.Fields{"session": sessionID, "op": op})
	if errors.Is(err, engine.ErrRoundResolved) {
		entry.Error("game: round resolution triggered twice")
		return
	}
	entry.Debug("game: action rejected")
}

// syncPlayers copies the engine's per-seat roles and vote logs onto the
// player rows and mirrors the phase onto the session.
func (s *SessionService) syncPlayers(sess *models.Session, players []models.Player) {
	now := s.now()
	sess.Status = sess.State.Phase
	sess.UpdatedAt = now
	for i := range players {
		p := &players[i]
		p.SessionID = sess.ID
		p.UpdatedAt = now
		if !sess.State.Dealt || i >= len(sess.State.Players) {
			p.Role = nil
			p.VoteHistory = engine.VoteLog{}
			continue
		}
		seat := sess.State.Players[i]
		role := seat.Role
		p.Role = &role
		for m := range seat.VoteLog {
			p.VoteHistory[m] = append([]engine.PersonalVote(nil), seat.VoteLog[m]...)
		}
	}
}
