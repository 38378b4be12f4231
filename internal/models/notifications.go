package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationTypeAssignment NotificationType = "assignment"
	NotificationTypeMessage    NotificationType = "message"
	NotificationTypeCourse     NotificationType = "course"
	NotificationTypeSystem     NotificationType = "system"
	NotificationTypeGroup      NotificationType = "group"
)

var NotificationTypes = []NotificationType{
	NotificationTypeAssignment,
	NotificationTypeMessage,
	NotificationTypeCourse,
	NotificationTypeSystem,
	NotificationTypeGroup,
}

const (
	MinNotificationPriority = 0
	MaxNotificationPriority = 10
	DefaultNotificationTTL  = 30 * 24 * time.Hour
)

type Notification struct {
	NotificationID string            `json:"notification_id" db:"notification_id"`
	UserID         string            `json:"user_id" db:"user_id"`
	ChatID         *string           `json:"chat_id" db:"chat_id"`
	MessageID      *string           `json:"message_id" db:"message_id"`
	Type           NotificationType  `json:"notification_type" db:"notification_type"`
	Title          string            `json:"title" db:"title"`
	Content        *string           `json:"content" db:"content"`
	Data           datatypes.JSONMap `json:"data" db:"data"`
	Priority       int               `json:"priority" db:"priority"`
	Seen           bool              `json:"seen" db:"seen"`
	SeenAt         *time.Time        `json:"seen_at" db:"seen_at"`
	Read           bool              `json:"read" db:"read"`
	ReadAt         *time.Time        `json:"read_at" db:"read_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
	ExpiresAt      *time.Time        `json:"expires_at" db:"expires_at"`
}

type NotificationCreate struct {
	UserID    string            `json:"user_id" validate:"required,uuid"`
	Type      NotificationType  `json:"notification_type" validate:"required,oneof=assignment message course system group"`
	Title     string            `json:"title" validate:"required,max=255"`
	Content   *string           `json:"content"`
	Data      datatypes.JSONMap `json:"data"`
	Priority  int               `json:"priority" validate:"min=0,max=10"`
	ExpiresAt *time.Time        `json:"expires_at"`
	ChatID    *string           `json:"chat_id" validate:"omitempty,uuid"`
	MessageID *string           `json:"message_id" validate:"omitempty,uuid"`
}

type NotificationFilter struct {
	UnreadOnly bool
	Type       *NotificationType
}

type NotificationStats struct {
	Total  uint64 `json:"total" db:"total"`
	Unread uint64 `json:"unread" db:"unread"`
	Unseen uint64 `json:"unseen" db:"unseen"`
}
