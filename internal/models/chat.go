package models

import "time"

const (
	DefaultPrompt = "Hi"
	DefaultUserID = "anonymous"
)

// Message is a single entry of a user's transcript.
type Message struct {
	Text      string    `json:"text" bson:"text"`
	IsUser    bool      `json:"isUser" bson:"isUser"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// ChatSession is the one-per-user history record.
type ChatSession struct {
	UserID    string    `json:"userId" bson:"userId"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// GenerateRequest is the payload of POST /generate. Both fields are optional.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type ClearResponse struct {
	Success bool `json:"success"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
