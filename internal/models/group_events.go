package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventTypeJoin              EventType = "join"
	EventTypeLeave             EventType = "leave"
	EventTypeAdd               EventType = "add"
	EventTypeRemove            EventType = "remove"
	EventTypePromote           EventType = "promote"
	EventTypeDemote            EventType = "demote"
	EventTypeNameChange        EventType = "name_change"
	EventTypeDescriptionChange EventType = "description_change"
	EventTypeSettingsChange    EventType = "settings_change"
)

var EventTypes = []EventType{
	EventTypeJoin,
	EventTypeLeave,
	EventTypeAdd,
	EventTypeRemove,
	EventTypePromote,
	EventTypeDemote,
	EventTypeNameChange,
	EventTypeDescriptionChange,
	EventTypeSettingsChange,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresTarget reports whether events of this type act upon another user.
func (t EventType) RequiresTarget() bool {
	switch t {
	case EventTypeAdd, EventTypeRemove, EventTypePromote, EventTypeDemote:
		return true
	}
	return false
}

// RequiredDataKeys lists the event_data keys events of this type must carry.
func (t EventType) RequiredDataKeys() []string {
	if t == EventTypeNameChange {
		return []string{"old_name", "new_name"}
	}
	return nil
}

type GroupEvent struct {
	EventID      string            `json:"event_id" db:"event_id"`
	ChatID       string            `json:"chat_id" db:"chat_id"`
	UserID       string            `json:"user_id" db:"user_id"`
	TargetUserID *string           `json:"target_user_id" db:"target_user_id"`
	Type         EventType         `json:"event_type" db:"event_type"`
	Data         datatypes.JSONMap `json:"event_data" db:"event_data"`
	EventTime    time.Time         `json:"event_time" db:"event_time"`
}

type GroupEventCreate struct {
	ChatID       string            `json:"-" validate:"required,uuid"`
	UserID       string            `json:"-" validate:"required,uuid"`
	Type         EventType         `json:"event_type" validate:"required"`
	TargetUserID *string           `json:"target_user_id" validate:"omitempty,uuid"`
	Data         datatypes.JSONMap `json:"event_data"`
}

type GroupEventFilter struct {
	Type *EventType
}

type EventStats struct {
	Total   uint64 `json:"total" db:"total"`
	Last24h uint64 `json:"last_24h" db:"last_24h"`
}
