package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "USER"
	MessageRoleAssistant MessageRole = "ASSISTANT"
)

const MaxChatMessageLength = 2000

// ChatMessage is immutable once stored. A nil UserID marks a guest message.
type ChatMessage struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    *primitive.ObjectID `json:"user_id" bson:"user_id"`
	Role      MessageRole         `json:"role" bson:"role"`
	Content   string              `json:"content" bson:"content"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
	Total    int64         `json:"total"`
}
