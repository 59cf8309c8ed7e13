// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wmxl/card-dealer-miniprogram/engine"
)

// Session is one persisted Avalon table.
type Session struct {
	ID         string           `json:"id"`         // Short join code shown to players.
	GameID     uuid.UUID        `json:"gameId"`     // Changes on every deal and reset.
	MaxPlayers int              `json:"maxPlayers"` // Seats; the table auto-deals when full.
	Status     engine.Phase     `json:"status"`     // Mirrors State.Phase for queries.
	Version    int64            `json:"version"`    // Optimistic concurrency token.
	State      engine.GameState `json:"state"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.State = s.State.Clone()
	return &c
}

// Player is one seat at a session.
type Player struct {
	SessionID    string         `json:"sessionId"`
	PlayerNumber int            `json:"playerNumber"` // 1..N in join order, never reused.
	Nickname     string         `json:"nickname"`
	Role         *engine.Role   `json:"role,omitempty"` // Nil until roles are dealt.
	VoteHistory  engine.VoteLog `json:"voteHistory"`
	JoinedAt     time.Time      `json:"joinedAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	c := p
	if p.Role != nil {
		r := *p.Role
		c.Role = &r
	}
	for m := range p.VoteHistory {
		c.VoteHistory[m] = append([]engine.PersonalVote(nil), p.VoteHistory[m]...)
	}
	return c
}

// ClonePlayers deep-copies a player list.
func ClonePlayers(in []Player) []Player {
	if in == nil {
		return nil
	}
	out := make([]Player, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
