package database

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/codelafda/codelafda/internal/cache"
	"github.com/codelafda/codelafda/internal/database"
	"github.com/codelafda/codelafda/internal/database/progression/model"
	bolt "go.etcd.io/bbolt"
)

const (
	statsPrefix   = "progression"
	matchesPrefix = "matches"
)

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

func statsBucket() []byte {
	return []byte(statsPrefix)
}

func matchesBucket(playerID string) []byte {
	return []byte(matchesPrefix + playerID)
}

// FetchStats returns the accumulated profile for a player. Players who have
// never finished a match get zero-value stats, not an error.
func (db *DB) FetchStats(playerID string) (model.Stats, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(playerID); ok {
			return v.(model.Stats), nil
		}
	}

	stats := model.NewStats(playerID)
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(statsBucket())
		if b == nil {
			return nil
		}

		raw := b.Get([]byte(playerID))
		if raw == nil {
			return nil
		}

		if err := json.Unmarshal(raw, &stats); err != nil {
			return fmt.Errorf("json unmarshal error, %w", err)
		}

		return nil
	}); err != nil {
		return model.NewStats(playerID), fmt.Errorf("view transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(playerID, stats)
	}

	return stats, nil
}

// Submit records one finished match, appends it to the player's match log and
// folds it into their aggregate stats. Returns the XP delta for the caller.
func (db *DB) Submit(m model.MatchResult) (model.XPResult, error) {
	var xp model.XPResult

	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return xp, fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() //nolint

	stats := model.NewStats(m.PlayerID)
	sb, err := tx.CreateBucketIfNotExists(statsBucket())
	if err != nil {
		return xp, fmt.Errorf("can not create stats bucket: %w", err)
	}

	if raw := sb.Get([]byte(m.PlayerID)); raw != nil {
		if err := json.Unmarshal(raw, &stats); err != nil {
			return xp, fmt.Errorf("json unmarshal error, %w", err)
		}
	}

	xp = applyResult(&stats, m)

	if m.Username != "" {
		stats.Username = m.Username
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return xp, fmt.Errorf("marshal: %w", err)
	}

	if err := sb.Put([]byte(m.PlayerID), raw); err != nil {
		return xp, fmt.Errorf("put to bucket error: %w", err)
	}

	mb, err := tx.CreateBucketIfNotExists(matchesBucket(m.PlayerID))
	if err != nil {
		return xp, fmt.Errorf("can not create matches bucket: %w", err)
	}

	binaryID, err := m.ID.MarshalBinary()
	if err != nil {
		return xp, fmt.Errorf("uuid binary: %w", err)
	}

	rawMatch, err := json.Marshal(m)
	if err != nil {
		return xp, fmt.Errorf("marshal: %w", err)
	}

	if err := mb.Put(binaryID, rawMatch); err != nil {
		return xp, fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return xp, fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(m.PlayerID)
	}

	return xp, nil
}

// FetchMatches returns the raw match log for a player.
func (db *DB) FetchMatches(playerID string) ([]model.MatchResult, error) {
	var list []model.MatchResult
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(matchesBucket(playerID))
		if b == nil {
			return ErrNotFound
		}

		if err := b.ForEach(func(k, v []byte) error {
			var m model.MatchResult
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			list = append(list, m)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

// Leaderboard lists up to limit players ordered by XP.
func (db *DB) Leaderboard(limit int) ([]model.LeaderboardEntry, error) {
	var all []model.Stats
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(statsBucket())
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stats model.Stats
			if err := json.Unmarshal(v, &stats); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
			}
			all = append(all, stats)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].XP > all[j].XP
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	entries := make([]model.LeaderboardEntry, len(all))
	for i, stats := range all {
		entries[i] = model.LeaderboardEntry{
			PlayerID: stats.PlayerID,
			Username: stats.Username,
			Value:    stats.XP,
			Rank:     i + 1,
		}
	}

	return entries, nil
}

// applyResult folds one match into the aggregate stats and computes the XP delta.
func applyResult(stats *model.Stats, m model.MatchResult) model.XPResult {
	gain := 25
	if m.IsWin {
		gain = 100
	}

	if m.Role == "HACKER" {
		if m.TotalTestCases > 0 {
			gain += m.TestCasesPassed * 50 / m.TotalTestCases
		}
		gain += m.BugsFixed * 10
	} else {
		gain += m.SabotagesSuccessful * 20
	}

	if m.IsWin && m.TimeTakenSeconds < 120 {
		gain += 30
	}

	result := model.XPResult{
		OldXP:   stats.XP,
		OldRank: stats.Rank,
	}

	stats.TotalMatches++
	if m.IsWin {
		stats.Wins++
		if m.Role == "IMPOSTOR" {
			stats.ImpostorWins++
		} else {
			stats.HackerWins++
		}
	}

	stats.XP += gain
	stats.Rank = model.RankForXP(stats.XP)

	accuracy := 0
	if m.TotalTestCases > 0 {
		accuracy = m.TestCasesPassed * 100 / m.TotalTestCases
	}
	stats.Accuracy = (stats.Accuracy*(stats.TotalMatches-1) + accuracy) / stats.TotalMatches

	result.NewXP = stats.XP
	result.XPGained = gain
	result.NewRank = stats.Rank
	result.RankUp = result.OldRank != result.NewRank

	return result
}
