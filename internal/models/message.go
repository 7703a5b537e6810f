package models

import (
	"time"
)

// Message directions stored on conversation messages.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// ConversationMessage is a single message of a conversation.
type ConversationMessage struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	ConversationID string    `json:"conversationId" bson:"conversationId"`
	InboxID        string    `json:"inboxId" bson:"inboxId"`
	Direction      string    `json:"direction" bson:"direction"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

// Conversation carries the summary written by the upstream summarizer.
type Conversation struct {
	ID        string     `json:"id" bson:"_id,omitempty"`
	InboxID   string     `json:"inboxId" bson:"inboxId"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	AISummary *AISummary `json:"aiSummary,omitempty" bson:"aiSummary,omitempty"`
}

// AISummary.Reason is untyped: older summarizer versions wrote objects or nulls.
type AISummary struct {
	Reason any `json:"reason" bson:"reason"`
}

// Inbox is a mailbox of an instance (tenant).
type Inbox struct {
	ID         string `json:"id" bson:"_id"`
	Name       string `json:"name" bson:"name"`
	InstanceID string `json:"instanceId" bson:"instanceId"`
}
