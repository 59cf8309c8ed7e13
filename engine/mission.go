package engine

import "fmt"

// MissionOutcome is returned for every accepted mission card.
type MissionOutcome struct {
	Mission   int            `json:"mission"`
	Submitted int            `json:"submitted"`
	TeamSize  int            `json:"teamSize"`
	Resolved  bool           `json:"roundResolved"`
	Result    *MissionResult `json:"result,omitempty"`
}

// SubmitMission records one success/fail card from a team member. When the
// last card arrives the mission is resolved exactly once.
func (g *GameState) SubmitMission(player int, success bool) (MissionOutcome, error) {
	if g.Phase != PhaseMission {
		return MissionOutcome{}, fmt.Errorf("%w: mission card in %s", ErrWrongPhase, g.Phase)
	}
	seat, ok := g.seatOf(player)
	if !ok {
		return MissionOutcome{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, player)
	}
	if !g.IsNominated(player) {
		return MissionOutcome{}, fmt.Errorf("%w: player %d", ErrNotParticipant, player)
	}

	g.syncMissionRound()
	m := &g.Round.Submissions
	if m.Resolved {
		return MissionOutcome{}, fmt.Errorf("%w: mission %d", ErrRoundResolved, g.Round.Mission)
	}
	if _, dup := m.Cards[player]; dup {
		return MissionOutcome{}, fmt.Errorf("%w: player %d, mission %d", ErrAlreadySubmitted, player, g.Round.Mission)
	}
	if !success && g.Rules.EnforceGoodSuccess && !g.Players[seat].Role.IsEvil() {
		return MissionOutcome{}, fmt.Errorf("%w: player %d", ErrGoodMustSucceed, player)
	}

	m.Cards[player] = success
	m.Count++

	team := len(g.Round.Nominated)
	out := MissionOutcome{Mission: g.Round.Mission, Submitted: m.Count, TeamSize: team}
	if m.Count < team {
		return out, nil
	}

	res, err := g.resolveMission()
	if err != nil {
		return out, err
	}
	out.Resolved = true
	out.Result = &res
	return out, nil
}

// syncMissionRound discards mission cards recorded for another round.
func (g *GameState) syncMissionRound() {
	m := &g.Round.Submissions
	if m.Tag == g.CurrentTag() && m.Cards != nil {
		return
	}
	*m = MissionRound{
		Tag:   g.CurrentTag(),
		Cards: make(map[int]bool, len(g.Round.Nominated)),
	}
}

// resolveMission scores a complete mission and applies the transition.
func (g *GameState) resolveMission() (MissionResult, error) {
	m := &g.Round.Submissions
	if m.Resolved {
		return MissionResult{}, fmt.Errorf("%w: mission %d", ErrRoundResolved, g.Round.Mission)
	}
	m.Resolved = true

	fails := 0
	for _, ok := range m.Cards {
		if !ok {
			fails++
		}
	}
	spec := g.CurrentMission()
	res := MissionResult{
		Mission:      g.Round.Mission,
		Participants: cloneInts(g.Round.Nominated),
		FailCount:    fails,
		SuccessCount: len(m.Cards) - fails,
		Success:      fails < spec.FailsRequired,
	}
	g.History.Missions = append(g.History.Missions, res)

	if res.Success {
		g.Round.GoodWins++
	} else {
		g.Round.EvilWins++
	}

	switch {
	case g.Round.GoodWins >= WinsNeeded:
		g.clearRound()
		g.Phase = PhaseAssassinate
	case g.Round.EvilWins >= WinsNeeded:
		g.clearRound()
		g.finish(FactionEvil, ReasonThreeFailed)
	default:
		g.Round.Mission++
		g.Round.Round++
		g.advanceLeader()
		g.clearRound()
		g.Phase = PhaseNominating
	}
	return res, nil
}
