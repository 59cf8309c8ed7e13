package engine

// Winners returns the player numbers on the winning faction, in seat order.
// It returns nil while the game is not over.
func (g *GameState) Winners() []int {
	if !g.IsTerminal() || g.Result == nil {
		return nil
	}
	var out []int
	for _, p := range g.Players {
		if p.Role.Faction == g.Result.Winner {
			out = append(out, p.Number)
		}
	}
	return out
}

// Utilities returns the game outcome per seat: winners get +1, losers -1.
// All zeros while the game is not over.
func (g *GameState) Utilities() []int8 {
	out := make([]int8, len(g.Players))
	if !g.IsTerminal() || g.Result == nil {
		return out
	}
	for i, p := range g.Players {
		if p.Role.Faction == g.Result.Winner {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}
