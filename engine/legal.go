package engine

// AwaitingPlayers returns the player numbers that still owe an action in the
// current phase, in ascending order.
func (g *GameState) AwaitingPlayers() []int {
	var out []int
	switch g.Phase {
	case PhaseRoleReveal, PhaseNominating:
		out = append(out, g.LeaderNumber())

	case PhaseVoting:
		for _, p := range g.Players {
			if g.Round.Votes.Seq == g.Round.VotesRound {
				if _, ok := g.Round.Votes.Ballots[p.Number]; ok {
					continue
				}
			}
			out = append(out, p.Number)
		}

	case PhaseMission:
		for _, p := range g.Players {
			if !g.IsNominated(p.Number) {
				continue
			}
			if g.Round.Submissions.Tag == g.CurrentTag() {
				if _, ok := g.Round.Submissions.Cards[p.Number]; ok {
					continue
				}
			}
			out = append(out, p.Number)
		}

	case PhaseAssassinate:
		if n := g.AssassinNumber(); n != 0 {
			out = append(out, n)
		}
	}
	return out
}

// CanAct reports whether the player owes an action right now.
func (g *GameState) CanAct(player int) bool {
	for _, p := range g.AwaitingPlayers() {
		if p == player {
			return true
		}
	}
	return false
}
