package engine

import "fmt"

// VisiblePlayer is one player a role is allowed to see.
// RoleName is only filled in when the viewer learns the exact role.
type VisiblePlayer struct {
	PlayerNumber int    `json:"playerNumber"`
	RoleName     string `json:"role,omitempty"`
}

// Vision is what a seat learns about the table at role reveal.
type Vision struct {
	Role    Role            `json:"role"`
	Visible []VisiblePlayer `json:"seePlayers"`
	Message string          `json:"message"`
	Tip     string          `json:"tip"`
}

// VisionFor computes the vision of player (1-based) given roles indexed by
// seat. It has no side effects.
func VisionFor(player int, roles []Role) (Vision, error) {
	if player < 1 || player > len(roles) {
		return Vision{}, fmt.Errorf("%w: %d", ErrPlayerNotFound, player)
	}
	self := roles[player-1]
	v := Vision{Role: self, Visible: []VisiblePlayer{}}

	collect := func(keep func(num int, r Role) bool, withRole bool) {
		for i, r := range roles {
			num := i + 1
			if !keep(num, r) {
				continue
			}
			vp := VisiblePlayer{PlayerNumber: num}
			if withRole {
				vp.RoleName = r.Name
			}
			v.Visible = append(v.Visible, vp)
		}
	}

	switch self.Code {
	case CodeMerlin:
		collect(func(_ int, r Role) bool { return r.IsEvil() && r.Code != CodeMordred }, false)
		v.Message = "These players are evil (Mordred is hidden from you)."
		v.Tip = "Guide the good team without revealing yourself to the assassin."

	case CodePercival:
		collect(func(_ int, r Role) bool { return r.Code == CodeMerlin || r.Code == CodeMorgana }, false)
		v.Message = "One of these players is Merlin, the other is Morgana."
		v.Tip = "Find the real Merlin and protect them."

	case CodeAssassin, CodeMorgana, CodeMordred, CodeMinion:
		collect(func(num int, r Role) bool {
			return r.IsEvil() && r.Code != CodeOberon && num != player
		}, true)
		v.Message = "Your evil teammates."
		if self.Code == CodeAssassin {
			v.Tip = "If good completes three missions, you must name Merlin."
		} else {
			v.Tip = "Work with your teammates to fail missions."
		}

	case CodeOberon:
		v.Message = "You are evil, but you do not know your teammates."
		v.Tip = "Stay hidden and sabotage missions."

	case CodeLancelotRed:
		v.Message = "You are the evil Lancelot. Your teammates know you, you do not know them."
		v.Tip = "Sabotage missions without being caught."

	case CodeLancelotBlue:
		v.Message = "You are the loyal Lancelot."
		v.Tip = "Help the good team complete missions."

	default:
		v.Message = "You are a loyal servant of Arthur."
		v.Tip = "Help complete missions and protect Merlin."
	}
	return v, nil
}
