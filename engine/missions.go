package engine

import "fmt"

var (
	planSmall = MissionPlan{{2, 1}, {3, 1}, {3, 1}, {4, 2}, {4, 1}}
	planMid   = MissionPlan{{3, 1}, {4, 1}, {4, 1}, {5, 2}, {5, 1}}
	planLarge = MissionPlan{{3, 1}, {4, 1}, {4, 1}, {6, 2}, {6, 1}}
)

var missionTable = map[int]MissionPlan{
	3:  {{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}},
	4:  {{2, 1}, {2, 1}, {2, 1}, {2, 1}, {2, 1}},
	5:  {{2, 1}, {3, 1}, {2, 1}, {3, 2}, {3, 1}},
	6:  {{2, 1}, {3, 1}, {4, 1}, {3, 2}, {4, 1}},
	7:  planSmall,
	8:  planMid,
	9:  planMid,
	10: planMid,
	11: planLarge,
	12: planLarge,
}

// MissionPlanFor returns the five-mission plan for a table of n players.
// The returned array is a copy.
func MissionPlanFor(n int) (MissionPlan, error) {
	plan, ok := missionTable[n]
	if !ok {
		return MissionPlan{}, fmt.Errorf("%w: %d", ErrUnsupportedPlayerCount, n)
	}
	return plan, nil
}
