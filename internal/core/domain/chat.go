package domain

import "time"

// ChatMessage is one persisted turn of a conversation. The recent window of
// these feeds the follow-up query rewriter.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Language       string    `json:"language,omitempty"`
	Confidence     string    `json:"confidence,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
