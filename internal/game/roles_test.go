package game

import (
	"fmt"
	"testing"
)

func TestImposterQuota(t *testing.T) {
	t.Parallel()

	cases := []struct {
		players int
		quota   int
	}{
		{3, 1},
		{4, 1},
		{5, 1},
		{6, 2},
		{7, 2},
		{8, 2},
		{9, 3},
		{12, 3},
	}

	for _, tc := range cases {
		if got := ImposterQuota(tc.players); got != tc.quota {
			t.Errorf("quota for %d players: expected %d got %d", tc.players, tc.quota, got)
		}
	}
}

func TestEligibleImpostersAntiStreak(t *testing.T) {
	t.Parallel()

	ids := []string{"a", "b", "c", "d"}
	history := map[string][]Role{
		"a": {RoleImpostor, RoleImpostor},
		"b": {RoleHacker, RoleImpostor},
		"c": {RoleImpostor, RoleHacker},
	}

	eligible := EligibleImposters(ids, history)
	if len(eligible) != 3 {
		t.Fatalf("expected 3 eligible, got %d", len(eligible))
	}
	for _, id := range eligible {
		if id == "a" {
			t.Error("player with two straight impostor rounds must be filtered")
		}
	}
}

func TestPickImpostersFallback(t *testing.T) {
	t.Parallel()

	// every player is on an impostor streak; the filter must yield
	ids := []string{"a", "b", "c"}
	history := map[string][]Role{
		"a": {RoleImpostor, RoleImpostor},
		"b": {RoleImpostor, RoleImpostor},
		"c": {RoleImpostor, RoleImpostor},
	}

	picked := PickImposters(ids, history)
	if len(picked) != 1 {
		t.Fatalf("expected 1 impostor, got %d", len(picked))
	}
}

func TestPickImpostersQuotaAndDistinct(t *testing.T) {
	t.Parallel()

	for _, n := range []int{3, 6, 9, 11} {
		var ids []string
		for i := 0; i < n; i++ {
			ids = append(ids, fmt.Sprintf("p%d", i))
		}

		picked := PickImposters(ids, map[string][]Role{})
		if len(picked) != ImposterQuota(n) {
			t.Fatalf("%d players: expected %d impostors, got %d", n, ImposterQuota(n), len(picked))
		}

		seen := map[string]bool{}
		valid := map[string]bool{}
		for _, id := range ids {
			valid[id] = true
		}
		for _, id := range picked {
			if seen[id] {
				t.Errorf("%d players: duplicate impostor %s", n, id)
			}
			if !valid[id] {
				t.Errorf("%d players: unknown impostor %s", n, id)
			}
			seen[id] = true
		}
	}
}
