package engine

import (
	"errors"
	"testing"
)

// approveTeam nominates team and has every player approve it.
func approveTeam(t *testing.T, g *GameState, team ...int) {
	t.Helper()
	nominate(t, g, team...)
	out := voteAll(t, g, true)
	if !out.Resolved || g.Phase != PhaseMission {
		t.Fatalf("team %v not approved: phase=%s", team, g.Phase)
	}
}

// newFivePlayerGame deals five seats as Merlin, Percival, Loyal, Morgana, Assassin.
func newFivePlayerGame(t *testing.T) *GameState {
	t.Helper()
	g := newDealtGame(t, 5)
	seatRoles(t, g, CodeMerlin, CodePercival, CodeLoyal, CodeMorgana, CodeAssassin)
	return g
}

// winThreeMissions plays the five-player table to the assassination phase.
func winThreeMissions(t *testing.T, g *GameState) {
	t.Helper()
	for _, team := range [][]int{{1, 2}, {1, 2, 3}, {1, 2}} {
		approveTeam(t, g, team...)
		playMission(t, g)
	}
	if g.Phase != PhaseAssassinate {
		t.Fatalf("Phase = %s, want assassinate", g.Phase)
	}
}

// TestMissionSuccessAdvances verifies a successful mission moves to the next one.
func TestMissionSuccessAdvances(t *testing.T) {
	g := newFivePlayerGame(t)
	approveTeam(t, g, 1, 2)

	first, err := g.SubmitMission(1, true)
	if err != nil {
		t.Fatal(err)
	}
	if first.Resolved || first.Submitted != 1 || first.TeamSize != 2 {
		t.Errorf("first card outcome = %+v", first)
	}
	out, err := g.SubmitMission(2, true)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Resolved || out.Result == nil || !out.Result.Success {
		t.Fatalf("mission outcome = %+v", out)
	}
	if g.Round.GoodWins != 1 || g.Round.Mission != 1 || g.Phase != PhaseNominating {
		t.Errorf("after mission: wins=%d mission=%d phase=%s", g.Round.GoodWins, g.Round.Mission, g.Phase)
	}
	if g.LeaderNumber() != 2 || g.Round.Nominated != nil {
		t.Errorf("leader=%d team=%v", g.LeaderNumber(), g.Round.Nominated)
	}
	if len(g.History.Missions) != 1 || g.History.Missions[0].SuccessCount != 2 {
		t.Errorf("History.Missions = %+v", g.History.Missions)
	}
}

// TestMissionGuards covers the mission card failure kinds.
func TestMissionGuards(t *testing.T) {
	g := newFivePlayerGame(t)
	if _, err := g.SubmitMission(1, true); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("card before approval err = %v, want ErrWrongPhase", err)
	}

	approveTeam(t, g, 1, 4)
	if _, err := g.SubmitMission(2, true); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("outsider card err = %v, want ErrNotParticipant", err)
	}
	if _, err := g.SubmitMission(8, true); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("unknown player err = %v, want ErrPlayerNotFound", err)
	}
	if _, err := g.SubmitMission(1, false); !errors.Is(err, ErrGoodMustSucceed) {
		t.Errorf("good fail card err = %v, want ErrGoodMustSucceed", err)
	}
	if g.Round.Submissions.Count != 0 {
		t.Errorf("refused card was counted: %+v", g.Round.Submissions)
	}
	if _, err := g.SubmitMission(4, false); err != nil {
		t.Fatalf("evil fail card: %v", err)
	}
	if _, err := g.SubmitMission(4, true); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("duplicate card err = %v, want ErrAlreadySubmitted", err)
	}
}

// TestGoodMayFailWhenNotEnforced verifies the house rule can be relaxed.
func TestGoodMayFailWhenNotEnforced(t *testing.T) {
	hr := DefaultHouseRules()
	hr.EnforceGoodSuccess = false
	g := NewGame(42, hr)
	if err := g.Deal(5); err != nil {
		t.Fatal(err)
	}
	seatRoles(t, &g, CodeMerlin, CodePercival, CodeLoyal, CodeMorgana, CodeAssassin)
	approveTeam(t, &g, 1, 2)
	out := playMission(t, &g, 1)
	if out.Result == nil || out.Result.Success {
		t.Errorf("mission with a fail card succeeded: %+v", out.Result)
	}
}

// TestFailsRequiredRule checks the two-fail mission at seven players.
func TestFailsRequiredRule(t *testing.T) {
	tests := []struct {
		name      string
		failers   []int
		wantOK    bool
		wantPhase Phase
	}{
		{"one fail succeeds", []int{5}, true, PhaseAssassinate},
		{"two fails fail", []int{5, 6}, false, PhaseNominating},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newDealtGame(t, 7)
			seatRoles(t, g, CodeMerlin, CodePercival, CodeLoyal, CodeLoyal, CodeMorgana, CodeOberon, CodeAssassin)

			approveTeam(t, g, 1, 2)
			playMission(t, g)
			approveTeam(t, g, 3, 4, 5)
			playMission(t, g, 5)
			approveTeam(t, g, 1, 2, 3)
			playMission(t, g)

			if spec := g.CurrentMission(); spec.Players != 4 || spec.FailsRequired != 2 {
				t.Fatalf("mission 4 spec = %+v", spec)
			}
			approveTeam(t, g, 1, 5, 6, 7)
			out := playMission(t, g, tt.failers...)
			if out.Result == nil || out.Result.Success != tt.wantOK {
				t.Fatalf("result = %+v, want success=%v", out.Result, tt.wantOK)
			}
			if out.Result.FailCount != len(tt.failers) {
				t.Errorf("FailCount = %d, want %d", out.Result.FailCount, len(tt.failers))
			}
			if g.Phase != tt.wantPhase {
				t.Errorf("Phase = %s, want %s", g.Phase, tt.wantPhase)
			}
		})
	}
}

// TestThreeFailedMissions verifies evil wins outright on three failures.
func TestThreeFailedMissions(t *testing.T) {
	g := newFivePlayerGame(t)
	for _, team := range [][]int{{4, 5}, {3, 4, 5}, {4, 5}} {
		approveTeam(t, g, team...)
		playMission(t, g, 4)
	}
	if g.Phase != PhaseFinished || g.Result == nil {
		t.Fatalf("phase=%s result=%v", g.Phase, g.Result)
	}
	if g.Result.Winner != FactionEvil || g.Result.Reason != ReasonThreeFailed {
		t.Errorf("Result = %+v", g.Result)
	}
	if g.Round.EvilWins != 3 || len(g.History.Missions) != 3 {
		t.Errorf("evilWins=%d missions=%d", g.Round.EvilWins, len(g.History.Missions))
	}
}

// TestAssassinateMerlin verifies evil wins when the assassin finds Merlin.
func TestAssassinateMerlin(t *testing.T) {
	g := newFivePlayerGame(t)
	winThreeMissions(t, g)

	res, err := g.Assassinate(5, 1)
	if err != nil {
		t.Fatalf("Assassinate: %v", err)
	}
	if res.Winner != FactionEvil || !res.IsMerlin || res.Target != 1 || res.Reason != ReasonMerlinAssassinated {
		t.Errorf("Result = %+v", res)
	}
	if !g.IsTerminal() {
		t.Error("game not finished after assassination")
	}
}

// TestAssassinateMiss verifies good wins when the assassin misses.
func TestAssassinateMiss(t *testing.T) {
	g := newFivePlayerGame(t)
	winThreeMissions(t, g)

	res, err := g.Assassinate(0, 2)
	if err != nil {
		t.Fatalf("Assassinate: %v", err)
	}
	if res.Winner != FactionGood || res.IsMerlin || res.Reason != ReasonMerlinSurvived {
		t.Errorf("Result = %+v", res)
	}
	if _, err := g.Assassinate(0, 1); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("second assassination err = %v, want ErrAlreadyFinished", err)
	}
}

// TestAssassinateGuards covers phase, target and actor checks.
func TestAssassinateGuards(t *testing.T) {
	g := newFivePlayerGame(t)
	if _, err := g.Assassinate(0, 1); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("early assassination err = %v, want ErrWrongPhase", err)
	}
	winThreeMissions(t, g)
	if _, err := g.Assassinate(0, 9); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("unknown target err = %v, want ErrPlayerNotFound", err)
	}
	if _, err := g.Assassinate(4, 1); !errors.Is(err, ErrNotAssassin) {
		t.Errorf("morgana assassination err = %v, want ErrNotAssassin", err)
	}
	if g.Phase != PhaseAssassinate {
		t.Errorf("refused assassination changed phase to %s", g.Phase)
	}
}

// TestFivePlayerScenario plays a full five-player game with mixed results.
func TestFivePlayerScenario(t *testing.T) {
	g := newFivePlayerGame(t)

	// Mission 1: rejected once, then approved and passed.
	nominate(t, g, 4, 5)
	voteSplit(t, g, 4, 5)
	if g.LeaderNumber() != 2 {
		t.Fatalf("leader = %d, want 2", g.LeaderNumber())
	}
	if err := g.Nominate(2, []int{1, 2}); err != nil {
		t.Fatal(err)
	}
	voteSplit(t, g, 1, 2, 3)
	playMission(t, g)

	// Mission 2: evil slips onto the team and fails it.
	approveTeam(t, g, 1, 3, 5)
	playMission(t, g, 5)

	// Mission 3 passes.
	approveTeam(t, g, 1, 2)
	playMission(t, g)

	// Mission 4 needs two fails at five players; one is not enough.
	approveTeam(t, g, 2, 4, 5)
	out := playMission(t, g, 4)
	if out.Result == nil || !out.Result.Success {
		t.Fatalf("mission 4 result = %+v, want success", out.Result)
	}
	if g.Phase != PhaseAssassinate {
		t.Fatalf("Phase = %s, want assassinate", g.Phase)
	}

	res, err := g.ApplyAction(Action{Type: ActionAssassinate, Player: 5, Target: 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.Result == nil || res.Result.Winner != FactionGood {
		t.Errorf("Result = %+v, want good", res.Result)
	}
	if len(g.History.Votes) != 5 || len(g.History.Missions) != 4 {
		t.Errorf("history votes=%d missions=%d", len(g.History.Votes), len(g.History.Missions))
	}
	if g.History.Votes[0].Approved || g.History.Votes[0].Leader != 1 {
		t.Errorf("first vote record = %+v", g.History.Votes[0])
	}
}
