package model

import (
	"time"

	"github.com/google/uuid"
)

type Rank string

const (
	RankScriptKiddie Rank = "Script Kiddie"
	RankJuniorDev    Rank = "Junior Dev"
	RankSeniorDev    Rank = "Senior Dev"
	RankTechLead     Rank = "Tech Lead"
	RankArchitect    Rank = "Architect"
	RankTenX         Rank = "10x Engineer"
	RankAIOverlord   Rank = "AI Overlord"
)

var rankLadder = []struct {
	rank Rank
	xp   int
}{
	{RankScriptKiddie, 0},
	{RankJuniorDev, 500},
	{RankSeniorDev, 1500},
	{RankTechLead, 3000},
	{RankArchitect, 5000},
	{RankTenX, 8000},
	{RankAIOverlord, 12000},
}

// RankForXP returns the highest rank whose threshold the given xp reaches.
func RankForXP(xp int) Rank {
	current := RankScriptKiddie
	for _, r := range rankLadder {
		if xp >= r.xp {
			current = r.rank
		} else {
			break
		}
	}
	return current
}

// Stats is the accumulated profile for one player.
type Stats struct {
	PlayerID     string `json:"playerId"`
	Username     string `json:"username"`
	TotalMatches int    `json:"totalMatches"`
	Wins         int    `json:"wins"`
	ImpostorWins int    `json:"impostorWins"`
	HackerWins   int    `json:"hackerWins"`
	Accuracy     int    `json:"accuracy"`
	XP           int    `json:"xp"`
	Rank         Rank   `json:"rank"`
}

func NewStats(playerID string) Stats {
	return Stats{PlayerID: playerID, Rank: RankScriptKiddie}
}

// MatchResult is one finished match from one player's point of view,
// as reported by the presentation layer.
type MatchResult struct {
	ID                  uuid.UUID `json:"id"`
	PlayerID            string    `json:"playerId"`
	Username            string    `json:"username"`
	IsWin               bool      `json:"isWin"`
	Role                string    `json:"role"`
	TestCasesPassed     int       `json:"testCasesPassed"`
	TotalTestCases      int       `json:"totalTestCases"`
	TimeTakenSeconds    int       `json:"timeTakenSeconds"`
	SabotagesSuccessful int       `json:"sabotagesSuccessful,omitempty"`
	BugsFixed           int       `json:"bugsFixed,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

func NewMatchResult(playerID string) MatchResult {
	return MatchResult{
		ID:        uuid.New(),
		PlayerID:  playerID,
		CreatedAt: time.Now(),
	}
}

// XPResult describes the XP delta produced by submitting one match result.
type XPResult struct {
	OldXP    int  `json:"oldXp"`
	NewXP    int  `json:"newXp"`
	XPGained int  `json:"xpGained"`
	OldRank  Rank `json:"oldRank"`
	NewRank  Rank `json:"newRank"`
	RankUp   bool `json:"rankUp"`
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Value    int    `json:"value"`
	Rank     int    `json:"rank"`
}
