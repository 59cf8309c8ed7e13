package engine

// Rand is an inline xorshift64 generator. Its state is part of GameState so
// a persisted session deals the same way after a reload.
type Rand struct {
	State uint64 `json:"state"`
}

// NewRand seeds a generator. xorshift cannot start at 0, so 0 becomes 1.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = 1
	}
	return Rand{State: seed}
}

// Uint64 advances the generator.
func (r *Rand) Uint64() uint64 {
	x := r.State
	if x == 0 {
		x = 1
	}
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	r.State = x
	return x
}

// Intn returns a number in [0, n).
func (r *Rand) Intn(n int) int {
	return int(r.Uint64() % uint64(n))
}

// AssignRoles returns a uniformly shuffled role list for a table of n.
// Entry i is the role of seat i (player number i+1).
func AssignRoles(r *Rand, n int) ([]Role, error) {
	good, evil, err := RolesFor(n)
	if err != nil {
		return nil, err
	}
	roles := append(good, evil...)

	// Fisher-Yates shuffle.
	for i := len(roles) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}
	return roles, nil
}
