package domain

import (
	"encoding/json"
	"time"
)

// Data channel topics expected by the front end.
const (
	// TopicModeUpdate carries ModeChangeNotification payloads.
	TopicModeUpdate = "mode-update"
	// TopicChat carries ChatMessage payloads; the name follows the front end's chat hook convention.
	TopicChat = "lk-chat-topic"
)

// ModeChangeNotification tells the front end which mode the persona is in.
type ModeChangeNotification struct {
	Mode string `json:"mode"`
}

// ChatMessage is one transcript line rendered by the front end chat view.
type ChatMessage struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NewChatMessage stamps text with the current time in milliseconds since epoch.
func NewChatMessage(text string, now time.Time) ChatMessage {
	return ChatMessage{
		Message:   text,
		Timestamp: now.UnixMilli(),
	}
}

// EncodeModeChange serializes a mode notification for the mode channel.
func EncodeModeChange(mode Mode) ([]byte, error) {
	return json.Marshal(ModeChangeNotification{Mode: string(mode)})
}

// EncodeChatMessage serializes a chat message for the chat channel.
func EncodeChatMessage(msg ChatMessage) ([]byte, error) {
	return json.Marshal(msg)
}
