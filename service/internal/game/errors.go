// internal/game/errors.go
package game

import (
	"context"
	"errors"

	"github.com/wmxl/card-dealer-miniprogram/engine"
)

// Code is a stable, machine-readable error identifier for clients.
type Code string

const (
	CodeOK                     Code = ""
	CodeSessionNotFound        Code = "SESSION_NOT_FOUND"
	CodePlayerNotFound         Code = "PLAYER_NOT_FOUND"
	CodeSessionFull            Code = "SESSION_FULL"
	CodeGameInProgress         Code = "GAME_IN_PROGRESS"
	CodeInvalidMaxPlayers      Code = "INVALID_MAX_PLAYERS"
	CodeInvalidNickname        Code = "INVALID_NICKNAME"
	CodeUnsupportedPlayerCount Code = "UNSUPPORTED_PLAYER_COUNT"
	CodeTooFewPlayers          Code = "TOO_FEW_PLAYERS"
	CodeTooManyPlayers         Code = "TOO_MANY_PLAYERS"
	CodeAlreadyDealt           Code = "ALREADY_DEALT"
	CodeNotDealt               Code = "NOT_DEALT"
	CodeWrongPhase             Code = "WRONG_PHASE"
	CodeWrongTeamSize          Code = "WRONG_TEAM_SIZE"
	CodeInvalidTeam            Code = "INVALID_TEAM"
	CodeNotLeader              Code = "NOT_LEADER"
	CodeAlreadyVoted           Code = "ALREADY_VOTED"
	CodeStaleRound             Code = "STALE_ROUND"
	CodeNotParticipant         Code = "NOT_PARTICIPANT"
	CodeAlreadySubmitted       Code = "ALREADY_SUBMITTED"
	CodeGoodMustSucceed        Code = "GOOD_MUST_SUCCEED"
	CodeNotAssassin            Code = "NOT_ASSASSIN"
	CodeAlreadyFinished        Code = "ALREADY_FINISHED"
	CodeRoundResolved          Code = "ROUND_RESOLVED"
	CodeTransient              Code = "TRANSIENT"
	CodeCanceled               Code = "CANCELED"
	CodeInternal               Code = "INTERNAL"
)

var codeTable = []struct {
	err  error
	code Code
}{
	{ErrSessionNotFound, CodeSessionNotFound},
	{ErrSessionFull, CodeSessionFull},
	{ErrGameInProgress, CodeGameInProgress},
	{ErrInvalidMaxPlayers, CodeInvalidMaxPlayers},
	{ErrInvalidNickname, CodeInvalidNickname},
	{ErrTransient, CodeTransient},
	{engine.ErrRoundResolved, CodeRoundResolved},
	{engine.ErrPlayerNotFound, CodePlayerNotFound},
	{engine.ErrUnsupportedPlayerCount, CodeUnsupportedPlayerCount},
	{engine.ErrTooFewPlayers, CodeTooFewPlayers},
	{engine.ErrTooManyPlayers, CodeTooManyPlayers},
	{engine.ErrAlreadyDealt, CodeAlreadyDealt},
	{engine.ErrNotDealt, CodeNotDealt},
	{engine.ErrAlreadyFinished, CodeAlreadyFinished},
	{engine.ErrWrongPhase, CodeWrongPhase},
	{engine.ErrWrongTeamSize, CodeWrongTeamSize},
	{engine.ErrInvalidTeam, CodeInvalidTeam},
	{engine.ErrNotLeader, CodeNotLeader},
	{engine.ErrAlreadyVoted, CodeAlreadyVoted},
	{engine.ErrStaleRound, CodeStaleRound},
	{engine.ErrNotParticipant, CodeNotParticipant},
	{engine.ErrAlreadySubmitted, CodeAlreadySubmitted},
	{engine.ErrGoodMustSucceed, CodeGoodMustSucceed},
	{engine.ErrNotAssassin, CodeNotAssassin},
	{context.Canceled, CodeCanceled},
	{context.DeadlineExceeded, CodeCanceled},
}

// ErrorCode maps err to its Code. Unrecognized errors are CodeInternal.
func ErrorCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
