package engine

import "fmt"

// ActionType names a player action routed through ApplyAction.
type ActionType string

const (
	ActionNominate    ActionType = "nominate"
	ActionVote        ActionType = "vote"
	ActionMission     ActionType = "mission"
	ActionAssassinate ActionType = "assassinate"
)

// Action is one player submission. Player is the acting player number; it
// may be 0 for nominations and assassinations when the caller does not
// identify the actor.
type Action struct {
	Type    ActionType `json:"type"`
	Player  int        `json:"player,omitempty"`
	Team    []int      `json:"team,omitempty"`
	Approve bool       `json:"approve,omitempty"`
	Success bool       `json:"success,omitempty"`
	Target  int        `json:"target,omitempty"`
	Round   *RoundTag  `json:"round,omitempty"`
}

// Outcome reports what an action did.
type Outcome struct {
	Phase   Phase           `json:"phase"`
	Vote    *VoteOutcome    `json:"vote,omitempty"`
	Mission *MissionOutcome `json:"mission,omitempty"`
	Result  *GameResult     `json:"result,omitempty"`
}

// ApplyAction dispatches an action to the matching aggregator.
func (g *GameState) ApplyAction(a Action) (Outcome, error) {
	switch a.Type {
	case ActionNominate:
		if err := g.Nominate(a.Player, a.Team); err != nil {
			return Outcome{}, err
		}
		return Outcome{Phase: g.Phase}, nil

	case ActionVote:
		v, err := g.Vote(a.Player, a.Approve, a.Round)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Phase: g.Phase, Vote: &v, Result: g.Result}, nil

	case ActionMission:
		m, err := g.SubmitMission(a.Player, a.Success)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Phase: g.Phase, Mission: &m, Result: g.Result}, nil

	case ActionAssassinate:
		r, err := g.Assassinate(a.Player, a.Target)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Phase: g.Phase, Result: &r}, nil
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}

// Nominate stores the leader's proposed team and opens a fresh vote round.
// leader is the nominating player number, or 0 when the caller does not
// identify the leader.
func (g *GameState) Nominate(leader int, team []int) error {
	if g.Phase != PhaseRoleReveal && g.Phase != PhaseNominating {
		return fmt.Errorf("%w: nominate in %s", ErrWrongPhase, g.Phase)
	}
	if leader == 0 && g.Rules.RequireLeader {
		return fmt.Errorf("%w: nomination must name the leader", ErrNotLeader)
	}
	if leader != 0 && leader != g.LeaderNumber() {
		return fmt.Errorf("%w: player %d, leader is %d", ErrNotLeader, leader, g.LeaderNumber())
	}
	spec := g.CurrentMission()
	if len(team) != spec.Players {
		return fmt.Errorf("%w: mission %d needs %d players, got %d", ErrWrongTeamSize, g.Round.Mission+1, spec.Players, len(team))
	}
	seen := make(map[int]bool, len(team))
	for _, p := range team {
		if _, ok := g.seatOf(p); !ok {
			return fmt.Errorf("%w: unknown player %d", ErrInvalidTeam, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: player %d nominated twice", ErrInvalidTeam, p)
		}
		seen[p] = true
	}

	g.Round.Nominated = cloneInts(team)
	g.Round.VotesRound++
	g.Round.Votes = VoteRound{
		Seq:     g.Round.VotesRound,
		Tag:     g.CurrentTag(),
		Ballots: make(map[int]bool, g.NumPlayers),
	}
	g.Round.Submissions = MissionRound{}
	g.Phase = PhaseVoting
	return nil
}
