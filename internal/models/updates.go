package models

import "time"

type UpdateType string

const (
	UpdateChatCreated          UpdateType = "chat_created"
	UpdateMessageSent          UpdateType = "message_sent"
	UpdateMemberAdded          UpdateType = "member_added"
	UpdateMemberRemoved        UpdateType = "member_removed"
	UpdateGroupEventCreated    UpdateType = "group_event_created"
	UpdateNotificationsCreated UpdateType = "notifications_created"
)

// UpdateMeta travels in the update envelope rather than in the payload.
type UpdateMeta struct {
	Timestamp time.Time `json:"-"`
	Audience  []string  `json:"-"`
}

type MessageSent struct {
	UpdateMeta
	MessageID string      `json:"message_id"`
	FromUser  string      `json:"from_user"`
	ChatID    string      `json:"chat_id"`
	Type      MessageType `json:"message_type"`
	Content   *string     `json:"content,omitempty"`
	MediaURL  *string     `json:"media_url,omitempty"`
	ReplyTo   *string     `json:"reply_to,omitempty"`
}

type ChatCreated struct {
	UpdateMeta
	ChatID  string   `json:"chat_id"`
	Type    ChatType `json:"chat_type"`
	Name    string   `json:"chat_name"`
	Members []string `json:"members"`
}

type MemberAdded struct {
	UpdateMeta
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

type MemberRemoved struct {
	UpdateMeta
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

type GroupEventCreated struct {
	UpdateMeta
	Event GroupEvent `json:"event"`
}

type NotificationsCreated struct {
	UpdateMeta
	Notifications []Notification `json:"notifications"`
}
