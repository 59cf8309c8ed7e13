// internal/game/player_actions.go
package game

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

// SubmitNomination proposes a mission team. leader may be 0 when the
// client does not identify the nominating player.
func (s *SessionService) SubmitNomination(ctx context.Context, sessionID string, leader int, team []int) (SessionView, error) {
	var tag engine.RoundTag
	sess, players, err := s.mutate(ctx, sessionID, "nominate", func(sess *models.Session, _ *[]models.Player) error {
		if err := sess.State.Nominate(leader, team); err != nil {
			return err
		}
		tag = sess.State.CurrentTag()
		return nil
	})
	if err != nil {
		return SessionView{}, err
	}

	log.WithFields(log.Fields{"session": sessionID, "round": tag, "team": team}).Debug("game: team nominated")
	view := buildSessionView(sess, players)
	payload := map[string]interface{}{
		"leader":           sess.State.LeaderNumber(),
		"nominatedPlayers": sess.State.Round.Nominated,
		"round":            tag,
	}
	s.fireEvent(GameEvent{Type: EventTeamNominated, SessionID: sessionID, Player: leader, Payload: payload, State: &view})
	b := s.newBatch()
	b.add(sess, leader, string(EventTeamNominated), payload)
	b.flush()
	return view, nil
}

// VoteResult is returned for every accepted ballot.
type VoteResult struct {
	engine.VoteOutcome
	Phase engine.Phase       `json:"phase"`
	Game  *engine.GameResult `json:"gameResult,omitempty"` // Set once the game is over.
}

// SubmitVote records one approve or reject ballot. A non-nil round names
// the round the voter was shown; ballots for any other round are refused.
func (s *SessionService) SubmitVote(ctx context.Context, sessionID string, player int, approve bool, round *engine.RoundTag) (VoteResult, error) {
	var before engine.Phase
	var out engine.VoteOutcome
	sess, players, err := s.mutate(ctx, sessionID, "vote", func(sess *models.Session, _ *[]models.Player) error {
		before = sess.State.Phase
		var err error
		out, err = sess.State.Vote(player, approve, round)
		return err
	})
	if err != nil {
		return VoteResult{}, err
	}

	s.fireEvent(GameEvent{
		Type:      EventVoteCast,
		SessionID: sessionID,
		Player:    player,
		Payload: map[string]interface{}{
			"round": out.Round,
			"cast":  out.Tally.Cast,
			"total": out.Tally.Total,
		},
	})
	b := s.newBatch()
	b.add(sess, player, string(EventVoteCast), map[string]interface{}{
		"round":   out.Round,
		"approve": approve,
	})

	if out.Resolved && out.Record != nil {
		log.WithFields(log.Fields{
			"session":  sessionID,
			"round":    out.Round,
			"approved": out.Record.Approved,
			"approve":  out.Record.ApproveCount,
			"reject":   out.Record.RejectCount,
		}).Info("game: vote resolved")
		view := buildSessionView(sess, players)
		payload := map[string]interface{}{"record": *out.Record}
		s.fireEvent(GameEvent{Type: EventVoteResolved, SessionID: sessionID, Payload: payload, State: &view})
		b.add(sess, 0, string(EventVoteResolved), map[string]interface{}{
			"round":    out.Round,
			"approved": out.Record.Approved,
		})
	}
	s.finishIfEnded(b, before, sess, players)
	b.flush()

	return VoteResult{VoteOutcome: out, Phase: sess.State.Phase, Game: sess.State.Result}, nil
}

// MissionCardResult is returned for every accepted mission card.
type MissionCardResult struct {
	engine.MissionOutcome
	Phase engine.Phase       `json:"phase"`
	Game  *engine.GameResult `json:"gameResult,omitempty"` // Set once the game is over.
}

// SubmitMissionResult records a team member's success or fail card.
func (s *SessionService) SubmitMissionResult(ctx context.Context, sessionID string, player int, success bool) (MissionCardResult, error) {
	var before engine.Phase
	var out engine.MissionOutcome
	sess, players, err := s.mutate(ctx, sessionID, "mission", func(sess *models.Session, _ *[]models.Player) error {
		before = sess.State.Phase
		var err error
		out, err = sess.State.SubmitMission(player, success)
		return err
	})
	if err != nil {
		return MissionCardResult{}, err
	}

	s.fireEvent(GameEvent{
		Type:      EventMissionCard,
		SessionID: sessionID,
		Player:    player,
		Payload: map[string]interface{}{
			"mission":   out.Mission,
			"submitted": out.Submitted,
			"teamSize":  out.TeamSize,
		},
	})
	b := s.newBatch()
	b.add(sess, player, string(EventMissionCard), map[string]interface{}{
		"mission": out.Mission,
		"success": success,
	})

	if out.Resolved && out.Result != nil {
		log.WithFields(log.Fields{
			"session": sessionID,
			"mission": out.Result.Mission + 1,
			"fails":   out.Result.FailCount,
			"success": out.Result.Success,
		}).Info("game: mission resolved")
		view := buildSessionView(sess, players)
		payload := map[string]interface{}{"result": *out.Result}
		s.fireEvent(GameEvent{Type: EventMissionResolved, SessionID: sessionID, Payload: payload, State: &view})
		b.add(sess, 0, string(EventMissionResolved), map[string]interface{}{
			"mission": out.Result.Mission,
			"fails":   out.Result.FailCount,
			"success": out.Result.Success,
		})
	}
	s.finishIfEnded(b, before, sess, players)
	b.flush()

	return MissionCardResult{MissionOutcome: out, Phase: sess.State.Phase, Game: sess.State.Result}, nil
}
