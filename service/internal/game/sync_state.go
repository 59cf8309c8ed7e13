// internal/game/sync_state.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/cache"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

// PlayerSummary is one seat as shown to the whole table.
type PlayerSummary struct {
	PlayerNumber int          `json:"playerNumber"`
	Nickname     string       `json:"nickname"`
	Role         *engine.Role `json:"role,omitempty"` // Only once the game is finished.
	IsLeader     bool         `json:"isLeader"`
	Nominated    bool         `json:"nominated"`
	Pending      bool         `json:"pending"` // Still owes an action this phase.
}

// RoundView is the public part of the round state. Ballots and mission
// cards are never exposed; only their counts are.
type RoundView struct {
	Leader             int             `json:"currentLeader"` // Player number.
	Mission            int             `json:"currentMission"`
	Round              int             `json:"currentRound"`
	Tag                engine.RoundTag `json:"tag"`
	ConsecutiveRejects int             `json:"consecutiveRejects"`
	GoodWins           int             `json:"goodWins"`
	EvilWins           int             `json:"evilWins"`
	TeamSize           int             `json:"teamSize"`
	FailsRequired      int             `json:"failsRequired"`
	Nominated          []int           `json:"nominatedPlayers"`
	VotesRound         int             `json:"votesRound"`
	VotesCast          int             `json:"votesCast"`
	CardsSubmitted     int             `json:"cardsSubmitted"`
	Awaiting           []int           `json:"awaiting"`
}

// SessionView is the public snapshot of a session.
type SessionView struct {
	ID             string                 `json:"id"`
	GameID         uuid.UUID              `json:"gameId"`
	Status         engine.Phase           `json:"status"`
	MaxPlayers     int                    `json:"maxPlayers"`
	PlayerCount    int                    `json:"playerCount"`
	Version        int64                  `json:"version"`
	Players        []PlayerSummary        `json:"players"`
	MissionConfig  *engine.MissionPlan    `json:"missionConfig,omitempty"`
	Round          *RoundView             `json:"gameState,omitempty"`
	VoteHistory    []engine.VoteRecord    `json:"voteHistory"`
	MissionResults []engine.MissionResult `json:"missionResults"`
	Result         *engine.GameResult     `json:"result,omitempty"`
	Winners        []int                  `json:"winners,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// SeenPlayer is a player another seat's vision reveals.
type SeenPlayer struct {
	PlayerNumber int    `json:"playerNumber"`
	Nickname     string `json:"nickname"`
	Role         string `json:"role,omitempty"`
}

// PlayerView is what one seat may know privately.
type PlayerView struct {
	SessionID    string         `json:"sessionId"`
	PlayerNumber int            `json:"playerNumber"`
	Nickname     string         `json:"nickname"`
	Role         engine.Role    `json:"role"`
	SeePlayers   []SeenPlayer   `json:"seePlayers"`
	Message      string         `json:"message"`
	Tip          string         `json:"tip"`
	VoteHistory  engine.VoteLog `json:"voteHistory"`
	Status       engine.Phase   `json:"status"`
	IsLeader     bool           `json:"isLeader"`
	OnTeam       bool           `json:"onTeam"`
	CanAct       bool           `json:"canAct"`
}

// DebugView exposes everything, including roles and raw round state.
type DebugView struct {
	Session      SessionView              `json:"session"`
	Players      []models.Player          `json:"players"`
	State        engine.GameState         `json:"state"`
	Actions      []cache.GameActionRecord `json:"actions,omitempty"`
	ActionsError string                   `json:"actionsError,omitempty"`
}

// GetSessionView returns the public snapshot of a session.
func (s *SessionService) GetSessionView(ctx context.Context, sessionID string) (SessionView, error) {
	sess, players, err := s.load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return buildSessionView(sess, players), nil
}

// GetPlayerView returns one seat's role, vision and personal vote log.
func (s *SessionService) GetPlayerView(ctx context.Context, sessionID string, player int) (PlayerView, error) {
	sess, players, err := s.load(ctx, sessionID)
	if err != nil {
		return PlayerView{}, err
	}
	return buildPlayerView(sess, players, player)
}

// GetSessionDebug returns the full stored state plus the action log when
// Redis is configured.
func (s *SessionService) GetSessionDebug(ctx context.Context, sessionID string) (DebugView, error) {
	sess, players, err := s.load(ctx, sessionID)
	if err != nil {
		return DebugView{}, err
	}
	dv := DebugView{
		Session: buildSessionView(sess, players),
		Players: players,
		State:   sess.State,
	}
	if cache.Rdb != nil {
		actions, err := cache.FetchGameActions(ctx, sessionID)
		if err != nil {
			log.WithError(err).WithField("session", sessionID).Warn("game: cannot fetch action log")
			dv.ActionsError = err.Error()
		} else {
			dv.Actions = actions
		}
	}
	return dv, nil
}

func buildSessionView(sess *models.Session, players []models.Player) SessionView {
	st := &sess.State
	view := SessionView{
		ID:             sess.ID,
		GameID:         sess.GameID,
		Status:         st.Phase,
		MaxPlayers:     sess.MaxPlayers,
		PlayerCount:    len(players),
		Version:        sess.Version,
		Players:        make([]PlayerSummary, 0, len(players)),
		VoteHistory:    append([]engine.VoteRecord{}, st.History.Votes...),
		MissionResults: append([]engine.MissionResult{}, st.History.Missions...),
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
	}

	var awaiting []int
	if st.Dealt {
		plan := st.Plan
		view.MissionConfig = &plan
		awaiting = st.AwaitingPlayers()
		spec := st.CurrentMission()
		rv := &RoundView{
			Leader:             st.LeaderNumber(),
			Mission:            st.Round.Mission,
			Round:              st.Round.Round,
			Tag:                st.CurrentTag(),
			ConsecutiveRejects: st.Round.ConsecutiveRejects,
			GoodWins:           st.Round.GoodWins,
			EvilWins:           st.Round.EvilWins,
			TeamSize:           spec.Players,
			FailsRequired:      spec.FailsRequired,
			Nominated:          append([]int{}, st.Round.Nominated...),
			VotesRound:         st.Round.VotesRound,
			Awaiting:           awaiting,
		}
		if st.Round.Votes.Seq == st.Round.VotesRound {
			rv.VotesCast = st.Round.Votes.Count
		}
		if st.Round.Submissions.Tag == st.CurrentTag() {
			rv.CardsSubmitted = st.Round.Submissions.Count
		}
		view.Round = rv
	}

	pending := make(map[int]bool, len(awaiting))
	for _, n := range awaiting {
		pending[n] = true
	}
	for _, p := range players {
		ps := PlayerSummary{
			PlayerNumber: p.PlayerNumber,
			Nickname:     p.Nickname,
			Pending:      pending[p.PlayerNumber],
		}
		if st.Dealt {
			ps.IsLeader = st.LeaderNumber() == p.PlayerNumber
			ps.Nominated = st.IsNominated(p.PlayerNumber)
		}
		if st.IsTerminal() && p.Role != nil {
			r := *p.Role
			ps.Role = &r
		}
		view.Players = append(view.Players, ps)
	}

	if st.Result != nil {
		r := *st.Result
		view.Result = &r
		view.Winners = st.Winners()
	}
	return view
}

func buildPlayerView(sess *models.Session, players []models.Player, player int) (PlayerView, error) {
	st := &sess.State
	if !st.Dealt {
		return PlayerView{}, engine.ErrNotDealt
	}
	vision, err := engine.VisionFor(player, st.Roles())
	if err != nil {
		return PlayerView{}, err
	}

	nicknames := make(map[int]string, len(players))
	for _, p := range players {
		nicknames[p.PlayerNumber] = p.Nickname
	}
	seen := make([]SeenPlayer, 0, len(vision.Visible))
	for _, v := range vision.Visible {
		seen = append(seen, SeenPlayer{
			PlayerNumber: v.PlayerNumber,
			Nickname:     nicknames[v.PlayerNumber],
			Role:         v.RoleName,
		})
	}

	pv := PlayerView{
		SessionID:    sess.ID,
		PlayerNumber: player,
		Nickname:     nicknames[player],
		Role:         vision.Role,
		SeePlayers:   seen,
		Message:      vision.Message,
		Tip:          vision.Tip,
		Status:       st.Phase,
		IsLeader:     st.LeaderNumber() == player,
		OnTeam:       st.IsNominated(player),
		CanAct:       st.CanAct(player),
	}
	for m, votes := range st.Players[player-1].VoteLog {
		pv.VoteHistory[m] = append([]engine.PersonalVote(nil), votes...)
	}
	return pv, nil
}
