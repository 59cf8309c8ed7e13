package engine

import "fmt"

// Faction is the side a role plays for.
type Faction string

const (
	FactionGood Faction = "good"
	FactionEvil Faction = "evil"
)

// RoleCode identifies a role independently of its display name.
type RoleCode string

const (
	CodeMerlin       RoleCode = "merlin"
	CodePercival     RoleCode = "percival"
	CodeLoyal        RoleCode = "loyal"
	CodeMorgana      RoleCode = "morgana"
	CodeAssassin     RoleCode = "assassin"
	CodeMordred      RoleCode = "mordred"
	CodeOberon       RoleCode = "oberon"
	CodeMinion       RoleCode = "minion"
	CodeLancelotBlue RoleCode = "lancelot_blue"
	CodeLancelotRed  RoleCode = "lancelot_red"
)

// Role is an immutable value looked up from the role catalog.
type Role struct {
	Name    string   `json:"name"`
	Faction Faction  `json:"side"`
	Code    RoleCode `json:"code"`
}

// IsEvil reports whether the role belongs to the evil faction.
func (r Role) IsEvil() bool { return r.Faction == FactionEvil }

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseWaiting     Phase = "waiting"
	PhaseRoleReveal  Phase = "role_reveal"
	PhaseNominating  Phase = "nominating"
	PhaseVoting      Phase = "voting"
	PhaseMission     Phase = "mission"
	PhaseAssassinate Phase = "assassinate"
	PhaseFinished    Phase = "finished"
)

// ParsePhase converts a stored status string back into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseWaiting, PhaseRoleReveal, PhaseNominating, PhaseVoting,
		PhaseMission, PhaseAssassinate, PhaseFinished:
		return p, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// Game size and win thresholds.
const (
	MinPlayers            = 3
	MaxPlayers            = 12
	NumMissions           = 5
	WinsNeeded            = 3
	MaxConsecutiveRejects = 5
)

// MissionSpec describes one of the five missions for a given table size.
type MissionSpec struct {
	Players       int `json:"players"`
	FailsRequired int `json:"failsRequired"`
}

// MissionPlan is the fixed per-session list of missions, indexed 0..4.
type MissionPlan [NumMissions]MissionSpec

// RoundTag is the identity of one nomination round: the mission index and
// the global nomination round counter. Every round-scoped substructure
// carries the tag it was opened for.
type RoundTag struct {
	Mission int `json:"mission"`
	Round   int `json:"round"`
}

func (t RoundTag) String() string { return fmt.Sprintf("%d-%d", t.Mission, t.Round) }

// Win reasons recorded on GameResult.
const (
	ReasonFiveRejections     = "five consecutive rejections"
	ReasonThreeFailed        = "three failed missions"
	ReasonMerlinAssassinated = "assassin killed merlin"
	ReasonMerlinSurvived     = "assassin missed merlin"
)

// RejectionReason is the win reason when limit straight nominations fail.
func RejectionReason(limit int) string {
	if limit == MaxConsecutiveRejects {
		return ReasonFiveRejections
	}
	return fmt.Sprintf("%d consecutive rejections", limit)
}

// VoteRecord is the immutable outcome of one nomination vote.
type VoteRecord struct {
	Mission      int          `json:"mission"`
	Round        int          `json:"round"`
	Leader       int          `json:"leader"` // player number of the leader
	Nominated    []int        `json:"nominatedPlayers"`
	Votes        map[int]bool `json:"votes"`
	Approved     bool         `json:"approved"`
	ApproveCount int          `json:"approveCount"`
	RejectCount  int          `json:"rejectCount"`
}

// MissionResult is the immutable outcome of one executed mission.
type MissionResult struct {
	Mission      int   `json:"mission"` // 0-based mission index
	Participants []int `json:"participants"`
	FailCount    int   `json:"failCount"`
	SuccessCount int   `json:"successCount"`
	Success      bool  `json:"success"`
}

// GameResult is created once when the game reaches PhaseFinished.
type GameResult struct {
	Winner   Faction `json:"winner"`
	Reason   string  `json:"reason"`
	Target   int     `json:"assassinatedPlayer,omitempty"`
	IsMerlin bool    `json:"isMerlin,omitempty"`
}

// PersonalVote is one entry in a player's own vote log.
type PersonalVote struct {
	Round   int  `json:"round"`
	Approve bool `json:"approve"`
}

// VoteLog holds a player's personal votes grouped by mission index.
type VoteLog [NumMissions][]PersonalVote
