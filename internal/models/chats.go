package models

import "time"

type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
	ChatTypeCourse  ChatType = "course"
)

func (t ChatType) Valid() bool {
	switch t {
	case ChatTypePrivate, ChatTypeGroup, ChatTypeCourse:
		return true
	}
	return false
}

type Chat struct {
	ChatID        string     `json:"chat_id" db:"chat_id"`
	Type          ChatType   `json:"chat_type" db:"chat_type"`
	Name          string     `json:"chat_name" db:"chat_name"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at" db:"last_message_at"`
}

type ChatParticipant struct {
	ChatID   string     `json:"chat_id" db:"chat_id"`
	UserID   string     `json:"user_id" db:"user_id"`
	JoinedAt time.Time  `json:"joined_at" db:"joined_at"`
	LeftAt   *time.Time `json:"left_at" db:"left_at"`
	IsAdmin  bool       `json:"is_admin" db:"is_admin"`
}

type ChatWithMembers struct {
	Chat
	Members []ChatParticipant `json:"members"`
}

type ChatCreate struct {
	Type           ChatType `json:"chat_type" validate:"required,oneof=private group course"`
	Name           string   `json:"chat_name" validate:"required,max=255"`
	CreatorID      string   `json:"-" validate:"required,uuid"`
	ParticipantIDs []string `json:"participant_ids" validate:"dive,uuid"`
}

// ChatSettings holds the mutable chat attributes. Nil fields are left untouched.
type ChatSettings struct {
	Name *string `json:"chat_name" validate:"omitempty,min=1,max=255"`
}
