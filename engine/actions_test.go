package engine

import (
	"errors"
	"testing"
)

// nominate submits team for the current leader without naming the leader.
func nominate(t *testing.T, g *GameState, team ...int) {
	t.Helper()
	if err := g.Nominate(0, team); err != nil {
		t.Fatalf("Nominate(%v): %v", team, err)
	}
}

// voteAll casts the same ballot for every player.
func voteAll(t *testing.T, g *GameState, approve bool) VoteOutcome {
	t.Helper()
	var out VoteOutcome
	for _, p := range g.Players {
		v, err := g.Vote(p.Number, approve, nil)
		if err != nil {
			t.Fatalf("Vote(%d): %v", p.Number, err)
		}
		out = v
	}
	return out
}

// voteSplit has the listed players approve and everyone else reject.
func voteSplit(t *testing.T, g *GameState, approvers ...int) VoteOutcome {
	t.Helper()
	yes := make(map[int]bool, len(approvers))
	for _, p := range approvers {
		yes[p] = true
	}
	var out VoteOutcome
	for _, p := range g.Players {
		v, err := g.Vote(p.Number, yes[p.Number], nil)
		if err != nil {
			t.Fatalf("Vote(%d): %v", p.Number, err)
		}
		out = v
	}
	return out
}

// playMission has every team member submit, failing for the listed players.
func playMission(t *testing.T, g *GameState, failers ...int) MissionOutcome {
	t.Helper()
	fail := make(map[int]bool, len(failers))
	for _, p := range failers {
		fail[p] = true
	}
	var out MissionOutcome
	for _, p := range append([]int(nil), g.Round.Nominated...) {
		m, err := g.SubmitMission(p, !fail[p])
		if err != nil {
			t.Fatalf("SubmitMission(%d): %v", p, err)
		}
		out = m
	}
	return out
}

// TestNominate covers the nomination guards and the transition to voting.
func TestNominate(t *testing.T) {
	tests := []struct {
		name   string
		leader int
		team   []int
		want   error
	}{
		{"ok anonymous", 0, []int{1, 2}, nil},
		{"ok leader", 1, []int{3, 4}, nil},
		{"not leader", 2, []int{1, 2}, ErrNotLeader},
		{"too small", 0, []int{1}, ErrWrongTeamSize},
		{"too large", 0, []int{1, 2, 3}, ErrWrongTeamSize},
		{"duplicate", 0, []int{2, 2}, ErrInvalidTeam},
		{"unknown seat", 0, []int{1, 6}, ErrInvalidTeam},
		{"zero seat", 0, []int{0, 1}, ErrInvalidTeam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newDealtGame(t, 5)
			err := g.Nominate(tt.leader, tt.team)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Nominate err = %v, want %v", err, tt.want)
			}
			if tt.want != nil {
				if g.Phase != PhaseRoleReveal || g.Round.Nominated != nil {
					t.Errorf("failed nomination changed state: phase=%s team=%v", g.Phase, g.Round.Nominated)
				}
				return
			}
			if g.Phase != PhaseVoting {
				t.Errorf("Phase = %s, want voting", g.Phase)
			}
			if g.Round.VotesRound != 1 || g.Round.Votes.Seq != 1 || g.Round.Votes.Count != 0 {
				t.Errorf("vote round not opened: %+v", g.Round.Votes)
			}
		})
	}
}

// TestNominateRequireLeader verifies the house rule rejects anonymous nominations.
func TestNominateRequireLeader(t *testing.T) {
	hr := DefaultHouseRules()
	hr.RequireLeader = true
	g := NewGame(3, hr)
	if err := g.Deal(5); err != nil {
		t.Fatal(err)
	}
	if err := g.Nominate(0, []int{1, 2}); !errors.Is(err, ErrNotLeader) {
		t.Errorf("anonymous nomination err = %v, want ErrNotLeader", err)
	}
	if err := g.Nominate(1, []int{1, 2}); err != nil {
		t.Errorf("leader nomination: %v", err)
	}
}

// TestNominateWrongPhase verifies nominations outside role_reveal/nominating.
func TestNominateWrongPhase(t *testing.T) {
	g := NewGame(1, DefaultHouseRules())
	if err := g.Nominate(0, []int{1, 2}); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("waiting nomination err = %v, want ErrWrongPhase", err)
	}

	d := newDealtGame(t, 5)
	nominate(t, d, 1, 2)
	if err := d.Nominate(0, []int{3, 4}); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("voting nomination err = %v, want ErrWrongPhase", err)
	}
}

// TestVoteMajority checks strict majority for odd and even tables.
func TestVoteMajority(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		team      []int
		approvers []int
		want      bool
	}{
		{"5p 3-2 approves", 5, []int{1, 2}, []int{1, 2, 3}, true},
		{"5p 2-3 rejects", 5, []int{1, 2}, []int{1, 2}, false},
		{"6p 3-3 rejects", 6, []int{1, 2}, []int{1, 2, 3}, false},
		{"6p 4-2 approves", 6, []int{1, 2}, []int{1, 2, 3, 4}, true},
		{"3p 2-1 approves", 3, []int{1}, []int{2, 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newDealtGame(t, tt.n)
			nominate(t, g, tt.team...)
			out := voteSplit(t, g, tt.approvers...)
			if !out.Resolved || out.Record == nil {
				t.Fatalf("vote not resolved: %+v", out)
			}
			if out.Record.Approved != tt.want {
				t.Errorf("Approved = %v, want %v", out.Record.Approved, tt.want)
			}
			if out.Record.ApproveCount != len(tt.approvers) || out.Record.RejectCount != tt.n-len(tt.approvers) {
				t.Errorf("counts = %d/%d", out.Record.ApproveCount, out.Record.RejectCount)
			}
			if len(g.History.Votes) != 1 {
				t.Fatalf("History.Votes = %d, want 1", len(g.History.Votes))
			}
			if tt.want {
				if g.Phase != PhaseMission || g.Round.ConsecutiveRejects != 0 {
					t.Errorf("approved: phase=%s rejects=%d", g.Phase, g.Round.ConsecutiveRejects)
				}
				if g.Round.Nominated == nil {
					t.Error("approved team was cleared")
				}
			} else {
				if g.Phase != PhaseNominating || g.Round.ConsecutiveRejects != 1 {
					t.Errorf("rejected: phase=%s rejects=%d", g.Phase, g.Round.ConsecutiveRejects)
				}
				if g.LeaderNumber() != 2 || g.Round.Round != 1 || g.Round.Nominated != nil {
					t.Errorf("rejected: leader=%d round=%d team=%v", g.LeaderNumber(), g.Round.Round, g.Round.Nominated)
				}
			}
		})
	}
}

// TestVotePartialTally verifies the running tally before resolution.
func TestVotePartialTally(t *testing.T) {
	g := newDealtGame(t, 5)
	nominate(t, g, 1, 2)
	g.Vote(1, true, nil)
	out, err := g.Vote(2, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Resolved {
		t.Fatal("resolved after 2 of 5 ballots")
	}
	want := Tally{Approve: 1, Reject: 1, Cast: 2, Total: 5}
	if out.Tally != want {
		t.Errorf("Tally = %+v, want %+v", out.Tally, want)
	}
	if g.Phase != PhaseVoting {
		t.Errorf("Phase = %s, want voting", g.Phase)
	}
	if got := g.AwaitingPlayers(); len(got) != 3 || got[0] != 3 {
		t.Errorf("AwaitingPlayers = %v, want [3 4 5]", got)
	}
}

// TestVoteAlreadyVoted verifies a second ballot is rejected and not counted.
func TestVoteAlreadyVoted(t *testing.T) {
	g := newDealtGame(t, 5)
	nominate(t, g, 1, 2)
	if _, err := g.Vote(3, true, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Vote(3, false, nil); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("duplicate vote err = %v, want ErrAlreadyVoted", err)
	}
	if g.Round.Votes.Count != 1 || !g.Round.Votes.Ballots[3] {
		t.Errorf("duplicate changed ballots: %+v", g.Round.Votes)
	}
}

// TestVoteStaleRound verifies a ballot tagged with an old round is refused.
func TestVoteStaleRound(t *testing.T) {
	g := newDealtGame(t, 5)
	nominate(t, g, 1, 2)
	old := g.CurrentTag()
	voteAll(t, g, false)
	nominate(t, g, 2, 3)

	if _, err := g.Vote(1, true, &old); !errors.Is(err, ErrStaleRound) {
		t.Fatalf("stale vote err = %v, want ErrStaleRound", err)
	}
	live := g.CurrentTag()
	if _, err := g.Vote(1, true, &live); err != nil {
		t.Errorf("live-tag vote: %v", err)
	}
}

// TestVoteWrongPhaseAndSeat covers the remaining vote guards.
func TestVoteWrongPhaseAndSeat(t *testing.T) {
	g := newDealtGame(t, 5)
	if _, err := g.Vote(1, true, nil); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("vote before nomination err = %v, want ErrWrongPhase", err)
	}
	nominate(t, g, 1, 2)
	if _, err := g.Vote(9, true, nil); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("unknown voter err = %v, want ErrPlayerNotFound", err)
	}
}

// TestVoteDiscardsStaleMap verifies leftover ballots from an earlier round
// are dropped when a vote arrives for the live round.
func TestVoteDiscardsStaleMap(t *testing.T) {
	g := newDealtGame(t, 5)
	nominate(t, g, 1, 2)
	g.Round.Votes = VoteRound{Seq: 0, Ballots: map[int]bool{1: true, 2: true}, Count: 2}

	out, err := g.Vote(1, false, nil)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if out.Tally.Cast != 1 || out.Tally.Reject != 1 {
		t.Errorf("Tally = %+v, stale ballots were counted", out.Tally)
	}
	if g.Round.Votes.Seq != g.Round.VotesRound {
		t.Errorf("Seq = %d, want %d", g.Round.Votes.Seq, g.Round.VotesRound)
	}
}

// TestVoteResolvedGuard verifies a resolved round refuses further ballots.
func TestVoteResolvedGuard(t *testing.T) {
	g := newDealtGame(t, 5)
	nominate(t, g, 1, 2)
	g.Round.Votes.Resolved = true
	if _, err := g.Vote(1, true, nil); !errors.Is(err, ErrRoundResolved) {
		t.Errorf("vote after resolution err = %v, want ErrRoundResolved", err)
	}
	if len(g.History.Votes) != 0 {
		t.Errorf("resolved round appended history")
	}
}

// TestVoteLogUpsert verifies personal vote logs keep one entry per round.
func TestVoteLogUpsert(t *testing.T) {
	var l VoteLog
	l.upsert(0, PersonalVote{Round: 0, Approve: true})
	l.upsert(0, PersonalVote{Round: 1, Approve: false})
	l.upsert(0, PersonalVote{Round: 0, Approve: false})
	l.upsert(7, PersonalVote{Round: 0, Approve: true})

	if len(l[0]) != 2 {
		t.Fatalf("len = %d, want 2", len(l[0]))
	}
	if l[0][0].Approve {
		t.Error("round 0 entry not replaced")
	}
}

// TestFiveRejectionsEndsGame verifies evil wins on the fifth straight reject.
func TestFiveRejectionsEndsGame(t *testing.T) {
	g := newDealtGame(t, 5)
	for i := 0; i < MaxConsecutiveRejects; i++ {
		if g.IsTerminal() {
			t.Fatalf("finished early after %d rejections", i)
		}
		nominate(t, g, 1, 2)
		voteAll(t, g, false)
	}
	if g.Phase != PhaseFinished || g.Result == nil {
		t.Fatalf("phase = %s, result = %v", g.Phase, g.Result)
	}
	if g.Result.Winner != FactionEvil || g.Result.Reason != ReasonFiveRejections {
		t.Errorf("Result = %+v", g.Result)
	}
	if len(g.History.Votes) != MaxConsecutiveRejects {
		t.Errorf("History.Votes = %d, want %d", len(g.History.Votes), MaxConsecutiveRejects)
	}
	if err := g.Nominate(0, []int{1, 2}); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("nomination after finish err = %v, want ErrWrongPhase", err)
	}
}

// TestApprovalResetsRejectCounter verifies the counter only counts consecutive rejections.
func TestApprovalResetsRejectCounter(t *testing.T) {
	g := newDealtGame(t, 5)
	for i := 0; i < 4; i++ {
		nominate(t, g, 1, 2)
		voteAll(t, g, false)
	}
	if g.Round.ConsecutiveRejects != 4 {
		t.Fatalf("ConsecutiveRejects = %d, want 4", g.Round.ConsecutiveRejects)
	}
	nominate(t, g, 1, 2)
	voteAll(t, g, true)
	if g.Round.ConsecutiveRejects != 0 || g.Phase != PhaseMission {
		t.Errorf("after approval rejects=%d phase=%s", g.Round.ConsecutiveRejects, g.Phase)
	}
}

// TestApplyActionDispatch routes every action type.
func TestApplyActionDispatch(t *testing.T) {
	g := newDealtGame(t, 5)
	seatRoles(t, g, CodeMerlin, CodePercival, CodeLoyal, CodeMorgana, CodeAssassin)

	out, err := g.ApplyAction(Action{Type: ActionNominate, Team: []int{1, 2}})
	if err != nil || out.Phase != PhaseVoting {
		t.Fatalf("nominate: %v, %+v", err, out)
	}
	for p := 1; p <= 5; p++ {
		out, err = g.ApplyAction(Action{Type: ActionVote, Player: p, Approve: true})
		if err != nil {
			t.Fatalf("vote %d: %v", p, err)
		}
	}
	if out.Vote == nil || !out.Vote.Resolved || out.Phase != PhaseMission {
		t.Fatalf("last vote outcome = %+v", out)
	}
	out, err = g.ApplyAction(Action{Type: ActionMission, Player: 1, Success: true})
	if err != nil || out.Mission == nil || out.Mission.Resolved {
		t.Fatalf("first card: %v, %+v", err, out)
	}
	if _, err := g.ApplyAction(Action{Type: "dance"}); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action err = %v, want ErrUnknownAction", err)
	}
}

// TestApplyActionBeforeDeal verifies actions in waiting report a wrong phase.
func TestApplyActionBeforeDeal(t *testing.T) {
	g := NewGame(1, DefaultHouseRules())
	for _, a := range []Action{
		{Type: ActionNominate, Team: []int{1, 2}},
		{Type: ActionVote, Player: 1},
		{Type: ActionMission, Player: 1},
		{Type: ActionAssassinate, Target: 1},
	} {
		if _, err := g.ApplyAction(a); !errors.Is(err, ErrWrongPhase) {
			t.Errorf("%s before deal err = %v, want ErrWrongPhase", a.Type, err)
		}
	}
}

// TestCustomRejectLimitReason verifies the win reason names the configured limit.
func TestCustomRejectLimitReason(t *testing.T) {
	rules := DefaultHouseRules()
	rules.MaxConsecutiveRejects = 3
	game := NewGame(42, rules)
	g := &game
	if err := g.Deal(5); err != nil {
		t.Fatalf("Deal: %v", err)
	}
	for i := 0; i < 3; i++ {
		nominate(t, g, 1, 2)
		voteAll(t, g, false)
	}
	if g.Result == nil {
		t.Fatalf("game not finished after 3 rejections, phase = %s", g.Phase)
	}
	if g.Result.Reason != "3 consecutive rejections" {
		t.Errorf("Reason = %q", g.Result.Reason)
	}
	if got := RejectionReason(MaxConsecutiveRejects); got != ReasonFiveRejections {
		t.Errorf("RejectionReason(5) = %q", got)
	}
}
