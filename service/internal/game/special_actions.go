// internal/game/special_actions.go
package game

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

// Assassinate resolves the assassin's guess at Merlin and ends the game.
// assassin may be 0 when the client does not identify the acting player.
func (s *SessionService) Assassinate(ctx context.Context, sessionID string, assassin, target int) (engine.GameResult, error) {
	var before engine.Phase
	var result engine.GameResult
	sess, players, err := s.mutate(ctx, sessionID, "assassinate", func(sess *models.Session, _ *[]models.Player) error {
		before = sess.State.Phase
		var err error
		result, err = sess.State.Assassinate(assassin, target)
		return err
	})
	if err != nil {
		return engine.GameResult{}, err
	}

	log.WithFields(log.Fields{
		"session":  sessionID,
		"target":   target,
		"isMerlin": result.IsMerlin,
	}).Info("game: assassination resolved")
	actor := assassin
	if actor == 0 {
		actor = sess.State.AssassinNumber()
	}
	payload := map[string]interface{}{
		"assassin": actor,
		"target":   target,
		"isMerlin": result.IsMerlin,
	}
	s.fireEvent(GameEvent{Type: EventAssassination, SessionID: sessionID, Player: actor, Payload: payload})
	b := s.newBatch()
	b.add(sess, actor, string(EventAssassination), payload)
	s.finishIfEnded(b, before, sess, players)
	b.flush()
	return result, nil
}
