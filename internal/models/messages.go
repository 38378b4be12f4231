package models

import "time"

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

type Message struct {
	MessageID   string      `json:"message_id" db:"message_id"`
	ChatID      string      `json:"chat_id" db:"chat_id"`
	SenderID    string      `json:"sender_id" db:"sender_id"`
	Type        MessageType `json:"message_type" db:"message_type"`
	Content     *string     `json:"content" db:"content"`
	MediaURL    *string     `json:"media_url" db:"media_url"`
	SentAt      time.Time   `json:"sent_at" db:"sent_at"`
	DeliveredAt *time.Time  `json:"delivered_at" db:"delivered_at"`
	EditedAt    *time.Time  `json:"edited_at" db:"edited_at"`
	ReplyTo     *string     `json:"reply_to" db:"reply_to"`
	IsDeleted   bool        `json:"is_deleted" db:"is_deleted"`
}

type MessageSend struct {
	ChatID   string      `json:"-" validate:"required,uuid"`
	SenderID string      `json:"-" validate:"required,uuid"`
	Type     MessageType `json:"message_type" validate:"required,oneof=text image file system"`
	Content  *string     `json:"content"`
	MediaURL *string     `json:"media_url" validate:"omitempty,max=255"`
	ReplyTo  *string     `json:"reply_to" validate:"omitempty,uuid"`
}

type MessageReadStatus struct {
	MessageID string    `json:"message_id" db:"message_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ReadAt    time.Time `json:"read_at" db:"read_at"`
}
