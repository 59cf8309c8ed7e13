// Package engine implements the Avalon session rules.
//
// The engine is a pure state machine: it holds no locks and performs no I/O.
// Callers serialize access to a GameState and persist it between actions;
// every operation either mutates the state and returns nil, or returns an
// error and leaves the state as it was before the call for validation
// failures. Callers that need all-or-nothing semantics across several
// mutations operate on a Clone.
package engine

import "fmt"

// PlayerState holds one seat's dealt role and personal vote log.
type PlayerState struct {
	Number  int     `json:"playerNumber"`
	Role    Role    `json:"role"`
	VoteLog VoteLog `json:"voteHistory"`
}

// VoteRound is the vote sub-state of a single nomination round.
type VoteRound struct {
	Seq      int          `json:"seq"` // VotesRound value this map belongs to
	Tag      RoundTag     `json:"tag"`
	Ballots  map[int]bool `json:"ballots"`
	Count    int          `json:"count"`
	Resolved bool         `json:"resolved"`
}

// MissionRound is the mission-card sub-state of the approved team.
type MissionRound struct {
	Tag      RoundTag     `json:"tag"`
	Cards    map[int]bool `json:"cards"`
	Count    int          `json:"count"`
	Resolved bool         `json:"resolved"`
}

// RoundState is the round-scoped part of a session.
type RoundState struct {
	Leader             int          `json:"currentLeader"` // seat index, 0..N-1
	Mission            int          `json:"currentMission"`
	Round              int          `json:"currentRound"`
	ConsecutiveRejects int          `json:"consecutiveRejects"`
	GoodWins           int          `json:"goodWins"`
	EvilWins           int          `json:"evilWins"`
	Nominated          []int        `json:"nominatedPlayers"`
	VotesRound         int          `json:"votesRound"` // monotonic, bumped per nomination
	Votes              VoteRound    `json:"votes"`
	Submissions        MissionRound `json:"missionSubmissions"`
}

// History is the append-only record of resolved votes and missions.
type History struct {
	Votes    []VoteRecord    `json:"voteHistory"`
	Missions []MissionResult `json:"missionResults"`
}

// GameState holds the complete, self-contained state of one Avalon session.
type GameState struct {
	NumPlayers int           `json:"numPlayers"`
	Phase      Phase         `json:"phase"`
	Dealt      bool          `json:"dealt"`
	Players    []PlayerState `json:"players"`
	Plan       MissionPlan   `json:"missionConfig"`
	Round      RoundState    `json:"gameState"`
	History    History       `json:"history"`
	Result     *GameResult   `json:"result,omitempty"`
	RNG        Rand          `json:"rng"`
	Rules      HouseRules    `json:"rules"`
}

// NewGame initializes a waiting GameState with the given seed and rules.
// Roles are not dealt until Deal.
func NewGame(seed uint64, rules HouseRules) GameState {
	return GameState{
		Phase: PhaseWaiting,
		RNG:   NewRand(seed),
		Rules: rules,
	}
}

// Deal assigns roles to n seated players, fixes the mission plan and moves
// the session to PhaseRoleReveal.
func (g *GameState) Deal(n int) error {
	if g.Dealt {
		return ErrAlreadyDealt
	}
	if g.Phase != PhaseWaiting {
		return fmt.Errorf("%w: deal in %s", ErrWrongPhase, g.Phase)
	}
	return g.deal(n)
}

// Reset clears all round and game state and re-deals roles to the same n
// seats. It is valid in every phase.
func (g *GameState) Reset(n int) error {
	next := GameState{
		Phase: PhaseWaiting,
		RNG:   g.RNG,
		Rules: g.Rules,
	}
	// Keep the vote round sequence monotonic across games.
	next.Round.VotesRound = g.Round.VotesRound
	if err := next.deal(n); err != nil {
		return err
	}
	*g = next
	return nil
}

func (g *GameState) deal(n int) error {
	if n < MinPlayers {
		return fmt.Errorf("%w: need at least %d, have %d", ErrTooFewPlayers, MinPlayers, n)
	}
	if n > MaxPlayers {
		return fmt.Errorf("%w: at most %d, have %d", ErrTooManyPlayers, MaxPlayers, n)
	}
	plan, err := MissionPlanFor(n)
	if err != nil {
		return err
	}
	rng := g.RNG
	roles, err := AssignRoles(&rng, n)
	if err != nil {
		return err
	}

	g.RNG = rng
	g.NumPlayers = n
	g.Plan = plan
	g.Players = make([]PlayerState, n)
	for i, r := range roles {
		g.Players[i] = PlayerState{Number: i + 1, Role: r}
	}
	votesRound := g.Round.VotesRound
	g.Round = RoundState{VotesRound: votesRound}
	g.History = History{}
	g.Result = nil
	g.Dealt = true
	g.Phase = PhaseRoleReveal
	return nil
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// IsTerminal returns true when the game is over.
func (g *GameState) IsTerminal() bool { return g.Phase == PhaseFinished }

// LeaderNumber returns the player number of the current leader.
func (g *GameState) LeaderNumber() int { return g.Round.Leader + 1 }

// CurrentTag returns the identity of the live nomination round.
func (g *GameState) CurrentTag() RoundTag {
	return RoundTag{Mission: g.Round.Mission, Round: g.Round.Round}
}

// CurrentMission returns the spec of the mission being played.
func (g *GameState) CurrentMission() MissionSpec {
	if g.Round.Mission < 0 || g.Round.Mission >= NumMissions {
		return MissionSpec{}
	}
	return g.Plan[g.Round.Mission]
}

// RoleOf returns the role dealt to the given player number.
func (g *GameState) RoleOf(player int) (Role, error) {
	seat, ok := g.seatOf(player)
	if !ok {
		return Role{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, player)
	}
	return g.Players[seat].Role, nil
}

// Roles returns the dealt roles indexed by seat.
func (g *GameState) Roles() []Role {
	roles := make([]Role, len(g.Players))
	for i, p := range g.Players {
		roles[i] = p.Role
	}
	return roles
}

// IsNominated reports whether the player is on the current team.
func (g *GameState) IsNominated(player int) bool {
	for _, n := range g.Round.Nominated {
		if n == player {
			return true
		}
	}
	return false
}

// seatOf maps a 1-based player number to a seat index.
func (g *GameState) seatOf(player int) (int, bool) {
	if player < 1 || player > len(g.Players) {
		return 0, false
	}
	return player - 1, true
}

// advanceLeader passes leadership to the next seat.
func (g *GameState) advanceLeader() {
	if g.NumPlayers == 0 {
		return
	}
	g.Round.Leader = (g.Round.Leader + 1) % g.NumPlayers
}

// clearRound drops the nominated team and both aggregators' sub-state.
func (g *GameState) clearRound() {
	g.Round.Nominated = nil
	g.Round.Votes = VoteRound{Seq: g.Round.VotesRound, Tag: g.CurrentTag(), Resolved: true}
	g.Round.Submissions = MissionRound{Tag: g.CurrentTag(), Resolved: true}
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// Clone returns a deep copy that shares no maps or slices with g.
func (g *GameState) Clone() GameState {
	c := *g
	if g.Players != nil {
		c.Players = make([]PlayerState, len(g.Players))
		for i, p := range g.Players {
			c.Players[i] = p
			for m := range p.VoteLog {
				c.Players[i].VoteLog[m] = append([]PersonalVote(nil), p.VoteLog[m]...)
			}
		}
	}
	c.Round.Nominated = cloneInts(g.Round.Nominated)
	c.Round.Votes.Ballots = cloneBallots(g.Round.Votes.Ballots)
	c.Round.Submissions.Cards = cloneBallots(g.Round.Submissions.Cards)
	c.History.Votes = make([]VoteRecord, len(g.History.Votes))
	for i, v := range g.History.Votes {
		v.Nominated = cloneInts(v.Nominated)
		v.Votes = cloneBallots(v.Votes)
		c.History.Votes[i] = v
	}
	c.History.Missions = make([]MissionResult, len(g.History.Missions))
	for i, m := range g.History.Missions {
		m.Participants = cloneInts(m.Participants)
		c.History.Missions[i] = m
	}
	if g.Result != nil {
		r := *g.Result
		c.Result = &r
	}
	return c
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	return append([]int(nil), in...)
}

func cloneBallots(in map[int]bool) map[int]bool {
	if in == nil {
		return nil
	}
	out := make(map[int]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
