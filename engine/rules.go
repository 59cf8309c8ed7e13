package engine

// HouseRules holds configurable game rule settings.
type HouseRules struct {
	EnforceGoodSuccess    bool `json:"enforceGoodSuccess"`    // reject fail cards from good players
	RequireLeader         bool `json:"requireLeader"`         // nominations must name the current leader
	MaxConsecutiveRejects int  `json:"maxConsecutiveRejects"` // 0 treated as MaxConsecutiveRejects
}

// DefaultHouseRules returns the standard Avalon house rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		EnforceGoodSuccess:    true,
		RequireLeader:         false,
		MaxConsecutiveRejects: MaxConsecutiveRejects,
	}
}

// rejectLimit returns the effective rejection limit, treating 0 as the default.
func (r *HouseRules) rejectLimit() int {
	if r.MaxConsecutiveRejects <= 0 {
		return MaxConsecutiveRejects
	}
	return r.MaxConsecutiveRejects
}
