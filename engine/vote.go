package engine

import "fmt"

// Tally is the running count of a vote round.
type Tally struct {
	Approve int `json:"approve"`
	Reject  int `json:"reject"`
	Cast    int `json:"cast"`
	Total   int `json:"total"`
}

// VoteOutcome is returned for every accepted ballot.
type VoteOutcome struct {
	Round    RoundTag    `json:"round"`
	Tally    Tally       `json:"tally"`
	Resolved bool        `json:"roundResolved"`
	Record   *VoteRecord `json:"record,omitempty"`
}

// Vote records one approve/reject ballot for the live nomination round.
// A non-nil at names the round the voter saw; if it is not the live round
// the ballot is refused with ErrStaleRound. When the last ballot arrives the
// round is tallied exactly once.
func (g *GameState) Vote(player int, approve bool, at *RoundTag) (VoteOutcome, error) {
	if g.Phase != PhaseVoting {
		return VoteOutcome{}, fmt.Errorf("%w: vote in %s", ErrWrongPhase, g.Phase)
	}
	seat, ok := g.seatOf(player)
	if !ok {
		return VoteOutcome{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, player)
	}
	live := g.CurrentTag()
	if at != nil && *at != live {
		return VoteOutcome{}, fmt.Errorf("%w: ballot for %s, live round %s", ErrStaleRound, at, live)
	}

	g.syncVoteRound()
	v := &g.Round.Votes
	if v.Resolved {
		return VoteOutcome{}, fmt.Errorf("%w: vote round %d", ErrRoundResolved, v.Seq)
	}
	if _, dup := v.Ballots[player]; dup {
		return VoteOutcome{}, fmt.Errorf("%w: player %d, round %s", ErrAlreadyVoted, player, live)
	}

	v.Ballots[player] = approve
	v.Count++
	g.Players[seat].VoteLog.upsert(live.Mission, PersonalVote{Round: live.Round, Approve: approve})

	out := VoteOutcome{Round: live, Tally: v.tally(g.NumPlayers)}
	if v.Count < g.NumPlayers {
		return out, nil
	}

	rec, err := g.resolveVotes()
	if err != nil {
		return out, err
	}
	out.Resolved = true
	out.Record = &rec
	return out, nil
}

// syncVoteRound discards a vote map left over from an earlier round.
func (g *GameState) syncVoteRound() {
	v := &g.Round.Votes
	if v.Seq == g.Round.VotesRound && v.Tag == g.CurrentTag() && v.Ballots != nil {
		return
	}
	*v = VoteRound{
		Seq:     g.Round.VotesRound,
		Tag:     g.CurrentTag(),
		Ballots: make(map[int]bool, g.NumPlayers),
	}
}

// resolveVotes tallies a complete vote round and applies the transition.
func (g *GameState) resolveVotes() (VoteRecord, error) {
	v := &g.Round.Votes
	if v.Resolved {
		return VoteRecord{}, fmt.Errorf("%w: vote round %d", ErrRoundResolved, v.Seq)
	}
	v.Resolved = true

	t := v.tally(g.NumPlayers)
	approved := t.Approve*2 > g.NumPlayers
	rec := VoteRecord{
		Mission:      g.Round.Mission,
		Round:        g.Round.Round,
		Leader:       g.LeaderNumber(),
		Nominated:    cloneInts(g.Round.Nominated),
		Votes:        cloneBallots(v.Ballots),
		Approved:     approved,
		ApproveCount: t.Approve,
		RejectCount:  g.NumPlayers - t.Approve,
	}
	g.History.Votes = append(g.History.Votes, rec)

	if approved {
		g.Round.ConsecutiveRejects = 0
		g.Round.Submissions = MissionRound{
			Tag:   g.CurrentTag(),
			Cards: make(map[int]bool, len(g.Round.Nominated)),
		}
		g.Phase = PhaseMission
		return rec, nil
	}

	g.Round.ConsecutiveRejects++
	if limit := g.Rules.rejectLimit(); g.Round.ConsecutiveRejects >= limit {
		g.clearRound()
		g.finish(FactionEvil, RejectionReason(limit))
		return rec, nil
	}
	g.advanceLeader()
	g.Round.Round++
	g.clearRound()
	g.Phase = PhaseNominating
	return rec, nil
}

func (v *VoteRound) tally(total int) Tally {
	t := Tally{Cast: v.Count, Total: total}
	for _, ok := range v.Ballots {
		if ok {
			t.Approve++
		} else {
			t.Reject++
		}
	}
	return t
}

// upsert replaces the entry for the same round or appends a new one.
func (l *VoteLog) upsert(mission int, pv PersonalVote) {
	if mission < 0 || mission >= NumMissions {
		return
	}
	for i, e := range l[mission] {
		if e.Round == pv.Round {
			l[mission][i] = pv
			return
		}
	}
	l[mission] = append(l[mission], pv)
}
