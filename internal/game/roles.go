package game

import "github.com/valyala/fastrand"

// Sabotage power quotas granted to every impostor at role assignment.
func defaultPowers() []*SabotagePower {
	return []*SabotagePower{
		{Type: SabotageInjectBug, Cooldown: 0, MaxUses: 3, UsesRemaining: 3},
		{Type: SabotageAlterOutput, Cooldown: 0, MaxUses: 2, UsesRemaining: 2},
		{Type: SabotageDelayCompile, Cooldown: 0, MaxUses: 2, UsesRemaining: 2},
	}
}

// ImposterQuota returns how many impostors a lobby of n players gets.
func ImposterQuota(n int) int {
	switch {
	case n >= 9:
		return 3
	case n >= 6:
		return 2
	default:
		return 1
	}
}

// EligibleImposters filters out players whose two most recent rounds were
// both impostor rounds. The filter is advisory: callers fall back to the
// full list when it leaves too few candidates.
func EligibleImposters(ids []string, history map[string][]Role) []string {
	var eligible []string
	for _, id := range ids {
		tail := history[id]
		if len(tail) >= 2 && tail[len(tail)-1] == RoleImpostor && tail[len(tail)-2] == RoleImpostor {
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible
}

// PickImposters selects the impostor set for this round, uniform without
// replacement, honoring the anti-streak filter only when it cannot block
// the game from starting.
func PickImposters(ids []string, history map[string][]Role) []string {
	quota := ImposterQuota(len(ids))

	pool := EligibleImposters(ids, history)
	if len(pool) < quota {
		pool = ids
	}

	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(fastrand.Uint32n(uint32(i + 1)))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:quota]
}
