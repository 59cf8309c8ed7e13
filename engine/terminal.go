package engine

import "fmt"

// finish records the game result and moves to PhaseFinished.
func (g *GameState) finish(winner Faction, reason string) {
	g.Result = &GameResult{Winner: winner, Reason: reason}
	g.Phase = PhaseFinished
}

// Assassinate resolves the assassin's single guess at Merlin. by is the
// acting player number, or 0 when the caller does not identify the actor.
func (g *GameState) Assassinate(by, target int) (GameResult, error) {
	if g.Phase == PhaseFinished {
		return GameResult{}, ErrAlreadyFinished
	}
	if g.Phase != PhaseAssassinate {
		return GameResult{}, fmt.Errorf("%w: assassinate in %s", ErrWrongPhase, g.Phase)
	}
	role, err := g.RoleOf(target)
	if err != nil {
		return GameResult{}, err
	}
	if by != 0 {
		actor, err := g.RoleOf(by)
		if err != nil {
			return GameResult{}, err
		}
		if actor.Code != CodeAssassin {
			return GameResult{}, fmt.Errorf("%w: player %d", ErrNotAssassin, by)
		}
	}

	isMerlin := role.Code == CodeMerlin
	if isMerlin {
		g.finish(FactionEvil, ReasonMerlinAssassinated)
	} else {
		g.finish(FactionGood, ReasonMerlinSurvived)
	}
	g.Result.Target = target
	g.Result.IsMerlin = isMerlin
	return *g.Result, nil
}

// AssassinNumber returns the player number holding the assassin role, or 0.
func (g *GameState) AssassinNumber() int {
	for _, p := range g.Players {
		if p.Role.Code == CodeAssassin {
			return p.Number
		}
	}
	return 0
}
