package game

// Tally resolves one round of votes to an ejection. The target with the
// strictly highest count is ejected; any tie for the top ejects no one.
func Tally(votes map[string]string) (string, bool) {
	if len(votes) == 0 {
		return "", false
	}

	counts := map[string]int{}
	for _, target := range votes {
		counts[target]++
	}

	var top string
	var max int
	tie := false
	for target, n := range counts {
		switch {
		case n > max:
			max = n
			top = target
			tie = false
		case n == max:
			tie = true
		}
	}

	if tie {
		return "", false
	}

	return top, true
}
