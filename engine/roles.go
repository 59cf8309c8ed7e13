package engine

import "fmt"

// Catalog roles.
var (
	Merlin       = Role{Name: "Merlin", Faction: FactionGood, Code: CodeMerlin}
	Percival     = Role{Name: "Percival", Faction: FactionGood, Code: CodePercival}
	LoyalServant = Role{Name: "Loyal Servant of Arthur", Faction: FactionGood, Code: CodeLoyal}
	LancelotBlue = Role{Name: "Lancelot (Loyal)", Faction: FactionGood, Code: CodeLancelotBlue}

	Morgana     = Role{Name: "Morgana", Faction: FactionEvil, Code: CodeMorgana}
	Assassin    = Role{Name: "Assassin", Faction: FactionEvil, Code: CodeAssassin}
	Mordred     = Role{Name: "Mordred", Faction: FactionEvil, Code: CodeMordred}
	Oberon      = Role{Name: "Oberon", Faction: FactionEvil, Code: CodeOberon}
	Minion      = Role{Name: "Minion of Mordred", Faction: FactionEvil, Code: CodeMinion}
	LancelotRed = Role{Name: "Lancelot (Evil)", Faction: FactionEvil, Code: CodeLancelotRed}
)

var rolesByCode = map[RoleCode]Role{
	CodeMerlin:       Merlin,
	CodePercival:     Percival,
	CodeLoyal:        LoyalServant,
	CodeLancelotBlue: LancelotBlue,
	CodeMorgana:      Morgana,
	CodeAssassin:     Assassin,
	CodeMordred:      Mordred,
	CodeOberon:       Oberon,
	CodeMinion:       Minion,
	CodeLancelotRed:  LancelotRed,
}

// RoleByCode looks up a catalog role.
func RoleByCode(code RoleCode) (Role, bool) {
	r, ok := rolesByCode[code]
	return r, ok
}

type roleSet struct {
	good []Role
	evil []Role
}

// roleTable is the canonical deal for each supported table size.
var roleTable = map[int]roleSet{
	3: {
		good: []Role{Merlin, LoyalServant},
		evil: []Role{Assassin},
	},
	4: {
		good: []Role{Merlin, LoyalServant, LoyalServant},
		evil: []Role{Assassin},
	},
	5: {
		good: []Role{Merlin, Percival, LoyalServant},
		evil: []Role{Morgana, Assassin},
	},
	6: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Assassin},
	},
	7: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Oberon, Assassin},
	},
	8: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Assassin, Minion},
	},
	9: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Assassin, Mordred},
	},
	10: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Assassin, Mordred, Oberon},
	},
	11: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant, LoyalServant, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Assassin, Mordred, Oberon},
	},
	12: {
		good: []Role{Merlin, Percival, LoyalServant, LoyalServant, LoyalServant, LoyalServant, LoyalServant},
		evil: []Role{Morgana, Assassin, Mordred, Oberon, Minion},
	},
}

// RolesFor returns copies of the good and evil role sets dealt at a table of n.
func RolesFor(n int) (good, evil []Role, err error) {
	set, ok := roleTable[n]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedPlayerCount, n)
	}
	good = append([]Role(nil), set.good...)
	evil = append([]Role(nil), set.evil...)
	return good, evil, nil
}
