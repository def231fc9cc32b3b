package room

import "github.com/codelafda/codelafda/internal/game"

// Client message tags.
const (
	MsgJoin       = "join"
	MsgReady      = "ready"
	MsgStartGame  = "start-game"
	MsgCodeChange = "code-change"
	MsgSabotage   = "sabotage"
	MsgVote       = "vote"
	MsgKickPlayer = "kick-player"
	MsgEndGame    = "end-game"
)

// ClientMessage is the tagged union of everything a client may send.
// Unused fields stay empty for a given tag.
type ClientMessage struct {
	Type         string            `json:"type"`
	Username     string            `json:"username,omitempty"`
	Preferences  *game.Preferences `json:"preferences,omitempty"`
	Code         string            `json:"code,omitempty"`
	SabotageType game.SabotageType `json:"sabotageType,omitempty"`
	TargetID     string            `json:"targetId,omitempty"`
	PlayerID     string            `json:"playerId,omitempty"`
}

type stateUpdateMessage struct {
	Type      string      `json:"type"`
	GameState *game.State `json:"gameState"`
}

type chatMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type loadCompilerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// codeSyncMessage carries the shared buffer to a newly attached
// connection, ahead of its first full state-update.
type codeSyncMessage struct {
	Type string `json:"type"`
	Code string `json:"code"`
}
