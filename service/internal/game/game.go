// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/cache"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/database"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

// OnGameEndFunc is called once per finished game with the winning player numbers.
type OnGameEndFunc func(sessionID string, gameID uuid.UUID, result engine.GameResult, winners []int)

// GameEventType names an event broadcast to session subscribers.
type GameEventType string

const (
	EventSessionCreated  GameEventType = "session_created"
	EventPlayerJoined    GameEventType = "player_joined"
	EventRolesDealt      GameEventType = "roles_dealt"
	EventPrivateRole     GameEventType = "private_role" // Private: the seat's role and vision.
	EventTeamNominated   GameEventType = "team_nominated"
	EventVoteCast        GameEventType = "vote_cast" // Public: who voted, never how.
	EventVoteResolved    GameEventType = "vote_resolved"
	EventMissionCard     GameEventType = "mission_card" // Public: card count only.
	EventMissionResolved GameEventType = "mission_resolved"
	EventAssassination   GameEventType = "assassination"
	EventGameEnd         GameEventType = "game_end"
	EventSessionReset    GameEventType = "session_reset"
)

// GameEvent is the envelope for every broadcast.
type GameEvent struct {
	Type      GameEventType          `json:"type"`
	SessionID string                 `json:"sessionId"`
	Player    int                    `json:"player,omitempty"` // Acting or addressed player.
	Payload   map[string]interface{} `json:"payload,omitempty"`
	State     *SessionView           `json:"state,omitempty"`
}

// Service errors. Engine validation errors pass through unchanged.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrTransient         = errors.New("session is busy, retry")
	ErrSessionFull       = errors.New("session is full")
	ErrGameInProgress    = errors.New("game already in progress")
	ErrInvalidMaxPlayers = errors.New("invalid max players")
	ErrInvalidNickname   = errors.New("invalid nickname")
)

// MaxNicknameLength bounds nicknames in runes.
const MaxNicknameLength = 32

const (
	defaultMaxRetries   = 5
	defaultRetryBackoff = 10 * time.Millisecond
	createAttempts      = 20
)

// Options tunes a SessionService.
type Options struct {
	Rules           engine.HouseRules
	MaxWriteRetries int           // Saves attempted per operation before ErrTransient.
	RetryBackoff    time.Duration // Base of the jittered delay between attempts.
}

// SessionService runs Avalon sessions on top of a Store. It keeps no game
// state of its own: every operation loads the session, applies the engine
// to a copy and saves it back conditionally on the loaded version.
type SessionService struct {
	store        database.Store
	rules        engine.HouseRules
	maxRetries   int
	retryBackoff time.Duration

	locksMu sync.Mutex
	locks   map[string]*sessionLock

	now       func() time.Time
	newGameID func() uuid.UUID
	newCode   func() string

	actions        sync.WaitGroup
	publishActions func(ctx context.Context, recs []cache.GameActionRecord) error

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(sessionID string, player int, ev GameEvent)
	OnGameEnd           OnGameEndFunc
}

// NewSessionService creates a service backed by store.
func NewSessionService(store database.Store, opts Options) *SessionService {
	if opts.MaxWriteRetries < 1 {
		opts.MaxWriteRetries = defaultMaxRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &SessionService{
		store:        store,
		rules:        opts.Rules,
		maxRetries:   opts.MaxWriteRetries,
		retryBackoff: opts.RetryBackoff,
		locks:        make(map[string]*sessionLock),
		now:          time.Now,
		newGameID:    uuid.New,
		newCode:      randomCode,
	}
}

// randomCode returns a four digit join code in 1000..9999.
func randomCode() string {
	return fmt.Sprintf("%04d", 1000+rand.IntN(9000))
}

// CreateSession opens a waiting table with maxPlayers seats.
func (s *SessionService) CreateSession(ctx context.Context, maxPlayers int) (SessionView, error) {
	if maxPlayers < engine.MinPlayers || maxPlayers > engine.MaxPlayers {
		return SessionView{}, fmt.Errorf("%w: %d (must be %d..%d)",
			ErrInvalidMaxPlayers, maxPlayers, engine.MinPlayers, engine.MaxPlayers)
	}

	now := s.now()
	for attempt := 0; attempt < createAttempts; attempt++ {
		gameID := s.newGameID()
		sess := &models.Session{
			ID:         s.newCode(),
			GameID:     gameID,
			MaxPlayers: maxPlayers,
			Status:     engine.PhaseWaiting,
			State:      engine.NewGame(seedFromID(gameID), s.rules),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err := s.store.CreateSession(ctx, sess)
		if errors.Is(err, database.ErrConflict) {
			log.WithField("session", sess.ID).Debug("game: join code taken, retrying")
			continue
		}
		if err != nil {
			return SessionView{}, fmt.Errorf("create session: %w", err)
		}

		log.WithFields(log.Fields{"session": sess.ID, "maxPlayers": maxPlayers}).Info("game: session created")
		view := buildSessionView(sess, nil)
		s.fireEvent(GameEvent{
			Type:      EventSessionCreated,
			SessionID: sess.ID,
			Payload:   map[string]interface{}{"maxPlayers": maxPlayers},
			State:     &view,
		})
		b := s.newBatch()
		b.add(sess, 0, string(EventSessionCreated), map[string]interface{}{"maxPlayers": maxPlayers})
		b.flush()
		return view, nil
	}
	return SessionView{}, fmt.Errorf("%w: no free join code after %d attempts", ErrTransient, createAttempts)
}

// JoinResult is returned by JoinSession.
type JoinResult struct {
	PlayerNumber int         `json:"playerNumber"`
	AutoDealt    bool        `json:"autoDealt"`
	Session      SessionView `json:"session"`
}

// JoinSession seats a new player. Filling the last seat deals roles.
func (s *SessionService) JoinSession(ctx context.Context, sessionID, nickname string) (JoinResult, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return JoinResult{}, fmt.Errorf("%w: must be 1..%d characters", ErrInvalidNickname, MaxNicknameLength)
	}

	var number int
	var dealt bool
	sess, players, err := s.mutate(ctx, sessionID, "join", func(sess *models.Session, players *[]models.Player) error {
		dealt = false
		if sess.State.Dealt || sess.State.Phase != engine.PhaseWaiting {
			return ErrGameInProgress
		}
		if len(*players) >= sess.MaxPlayers {
			return fmt.Errorf("%w: %d/%d", ErrSessionFull, len(*players), sess.MaxPlayers)
		}
		now := s.now()
		number = len(*players) + 1
		*players = append(*players, models.Player{
			SessionID:    sess.ID,
			PlayerNumber: number,
			Nickname:     nickname,
			JoinedAt:     now,
			UpdatedAt:    now,
		})
		if number == sess.MaxPlayers && number >= engine.MinPlayers {
			if err := s.dealLocked(sess, number); err != nil {
				return err
			}
			dealt = true
		}
		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}

	log.WithFields(log.Fields{"session": sessionID, "player": number, "nickname": nickname}).Info("game: player joined")
	view := buildSessionView(sess, players)
	s.fireEvent(GameEvent{
		Type:      EventPlayerJoined,
		SessionID: sessionID,
		Player:    number,
		Payload:   map[string]interface{}{"nickname": nickname},
		State:     &view,
	})
	b := s.newBatch()
	b.add(sess, number, string(EventPlayerJoined), map[string]interface{}{"nickname": nickname})
	if dealt {
		s.announceDeal(b, sess, players, &view)
	}
	b.flush()
	return JoinResult{PlayerNumber: number, AutoDealt: dealt, Session: view}, nil
}

// DealRoles deals roles to everyone seated. It is how a host starts a game
// before the table fills.
func (s *SessionService) DealRoles(ctx context.Context, sessionID string) (SessionView, error) {
	sess, players, err := s.mutate(ctx, sessionID, "deal", func(sess *models.Session, players *[]models.Player) error {
		n := len(*players)
		if n > sess.MaxPlayers {
			return fmt.Errorf("%w: %d seated at a %d seat table", engine.ErrTooManyPlayers, n, sess.MaxPlayers)
		}
		return s.dealLocked(sess, n)
	})
	if err != nil {
		return SessionView{}, err
	}
	view := buildSessionView(sess, players)
	b := s.newBatch()
	s.announceDeal(b, sess, players, &view)
	b.flush()
	return view, nil
}

// ResetSession discards the current game and re-deals roles to the same
// players. Resetting a table that was never dealt changes nothing.
func (s *SessionService) ResetSession(ctx context.Context, sessionID string) (SessionView, error) {
	var redealt bool
	sess, players, err := s.mutate(ctx, sessionID, "reset", func(sess *models.Session, players *[]models.Player) error {
		redealt = false
		if !sess.State.Dealt {
			return errUnchanged
		}
		gameID := s.newGameID()
		sess.State.RNG = engine.NewRand(seedFromID(gameID))
		if err := sess.State.Reset(len(*players)); err != nil {
			return err
		}
		sess.GameID = gameID
		redealt = true
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}
	view := buildSessionView(sess, players)
	if !redealt {
		return view, nil
	}

	log.WithFields(log.Fields{"session": sessionID, "gameId": sess.GameID}).Info("game: session reset")
	s.fireEvent(GameEvent{Type: EventSessionReset, SessionID: sessionID, State: &view})
	b := s.newBatch()
	b.add(sess, 0, string(EventSessionReset), nil)
	b.flush()
	s.sendPrivateRoles(sess, players)
	return view, nil
}

// dealLocked reseeds the session from a fresh game id and deals n seats.
// The caller holds the session lock and owns sess.
func (s *SessionService) dealLocked(sess *models.Session, n int) error {
	if sess.State.Dealt {
		return engine.ErrAlreadyDealt
	}
	gameID := s.newGameID()
	sess.State.RNG = engine.NewRand(seedFromID(gameID))
	if err := sess.State.Deal(n); err != nil {
		return err
	}
	sess.GameID = gameID
	return nil
}

func (s *SessionService) announceDeal(b *actionBatch, sess *models.Session, players []models.Player, view *SessionView) {
	log.WithFields(log.Fields{
		"session": sess.ID,
		"gameId":  sess.GameID,
		"players": len(players),
	}).Info("game: roles dealt")
	s.fireEvent(GameEvent{
		Type:      EventRolesDealt,
		SessionID: sess.ID,
		Payload:   map[string]interface{}{"numPlayers": len(players)},
		State:     view,
	})
	b.add(sess, 0, string(EventRolesDealt), map[string]interface{}{"numPlayers": len(players)})
	s.sendPrivateRoles(sess, players)
}

// sendPrivateRoles tells each seat its own role and vision.
func (s *SessionService) sendPrivateRoles(sess *models.Session, players []models.Player) {
	if s.BroadcastToPlayerFn == nil {
		return
	}
	for _, p := range players {
		pv, err := buildPlayerView(sess, players, p.PlayerNumber)
		if err != nil {
			log.WithError(err).WithField("session", sess.ID).Warn("game: cannot build private role view")
			continue
		}
		s.fireEventToPlayer(p.PlayerNumber, GameEvent{
			Type:      EventPrivateRole,
			SessionID: sess.ID,
			Player:    p.PlayerNumber,
			Payload:   map[string]interface{}{"view": pv},
		})
	}
}

// finishIfEnded fires the end-of-game notifications when an operation moved
// the session into the finished phase.
func (s *SessionService) finishIfEnded(b *actionBatch, before engine.Phase, sess *models.Session, players []models.Player) {
	if before == engine.PhaseFinished || sess.State.Phase != engine.PhaseFinished || sess.State.Result == nil {
		return
	}
	result := *sess.State.Result
	winners := sess.State.Winners()
	log.WithFields(log.Fields{
		"session": sess.ID,
		"gameId":  sess.GameID,
		"winner":  result.Winner,
		"reason":  result.Reason,
	}).Info("game: game over")

	view := buildSessionView(sess, players)
	s.fireEvent(GameEvent{
		Type:      EventGameEnd,
		SessionID: sess.ID,
		Payload: map[string]interface{}{
			"result":  result,
			"winners": winners,
		},
		State: &view,
	})
	b.add(sess, 0, string(EventGameEnd), map[string]interface{}{
		"winner": string(result.Winner),
		"reason": result.Reason,
	})
	if s.OnGameEnd != nil {
		s.OnGameEnd(sess.ID, sess.GameID, result, winners)
	}
}

func (s *SessionService) fireEvent(ev GameEvent) {
	if s.BroadcastFn == nil {
		log.WithFields(log.Fields{"session": ev.SessionID, "type": ev.Type}).Trace("game: no broadcaster")
		return
	}
	s.BroadcastFn(ev)
}

func (s *SessionService) fireEventToPlayer(player int, ev GameEvent) {
	if s.BroadcastToPlayerFn == nil {
		return
	}
	s.BroadcastToPlayerFn(ev.SessionID, player, ev)
}

// actionBatch collects the action log records of one operation. Its records
// share the session version and are published together, in order.
type actionBatch struct {
	s    *SessionService
	recs []cache.GameActionRecord
}

func (s *SessionService) newBatch() *actionBatch {
	return &actionBatch{s: s}
}

func (b *actionBatch) add(sess *models.Session, actor int, actionType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	b.recs = append(b.recs, cache.GameActionRecord{
		SessionID:     sess.ID,
		GameID:        sess.GameID,
		ActionIndex:   sess.Version,
		Seq:           len(b.recs),
		ActorPlayer:   actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     b.s.now().UnixMilli(),
	})
}

// flush appends the batch to the Redis action log in the background.
func (b *actionBatch) flush() {
	if len(b.recs) == 0 {
		return
	}
	publish := b.s.publishActions
	if publish == nil {
		client := cache.Rdb
		if client == nil {
			return
		}
		publish = func(ctx context.Context, recs []cache.GameActionRecord) error {
			return cache.PublishGameActions(ctx, client, recs...)
		}
	}
	recs := b.recs
	b.recs = nil

	b.s.actions.Add(1)
	go func() {
		defer b.s.actions.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := publish(ctx, recs); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"session": recs[0].SessionID,
				"index":   recs[0].ActionIndex,
				"records": len(recs),
			}).Error("game: failed publishing actions")
		}
	}()
}

// WaitActions blocks until every queued action log write has finished.
// Call it before closing the Redis client.
func (s *SessionService) WaitActions() {
	s.actions.Wait()
}
