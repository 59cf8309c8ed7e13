package engine

import "errors"

// Configuration errors.
var (
	ErrUnsupportedPlayerCount = errors.New("unsupported player count")
	ErrTooFewPlayers          = errors.New("too few players")
	ErrTooManyPlayers         = errors.New("too many players")
)

// Validation errors. None of these mutate the game state.
var (
	ErrAlreadyDealt     = errors.New("roles already dealt")
	ErrNotDealt         = errors.New("roles not dealt yet")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrWrongPhase       = errors.New("action not allowed in current phase")
	ErrWrongTeamSize    = errors.New("wrong team size")
	ErrInvalidTeam      = errors.New("invalid team")
	ErrNotLeader        = errors.New("player is not the current leader")
	ErrAlreadyVoted     = errors.New("player already voted this round")
	ErrStaleRound       = errors.New("submission targets a different round")
	ErrNotParticipant   = errors.New("player is not on the mission team")
	ErrAlreadySubmitted = errors.New("player already submitted a mission card")
	ErrGoodMustSucceed  = errors.New("good players may only submit success")
	ErrNotAssassin      = errors.New("player is not the assassin")
	ErrAlreadyFinished  = errors.New("game already finished")
	ErrUnknownAction    = errors.New("unknown action")
)

// ErrRoundResolved signals that a round's resolution was triggered twice.
// It is an internal invariant violation, never a caller mistake.
var ErrRoundResolved = errors.New("round already resolved")
