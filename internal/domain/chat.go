package domain

import "time"

// ChatTurn is one persisted user/assistant exchange of a chat session.
type ChatTurn struct {
	ID          uint64    `json:"id"`
	SessionID   string    `json:"sessionId"`
	UserMessage string    `json:"userMessage"`
	AIResponse  string    `json:"aiResponse"`
	CreatedAt   time.Time `json:"createTime"`
}

// ChatReply is the result of a chat generation.
type ChatReply struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}
