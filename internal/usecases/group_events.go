package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const eventStatsWindow = 24 * time.Hour

type GroupEventsUsecase struct {
	registry storage.Registry
	validate *validator.Validate
	fanout   *Fanout
	logger   *logrus.Logger
	now      func() time.Time
}

func NewGroupEventsUsecase(r storage.Registry, v *validator.Validate, f *Fanout, logger *logrus.Logger) *GroupEventsUsecase {
	return &GroupEventsUsecase{
		registry: r,
		validate: v,
		fanout:   f,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// DescribeEvent renders the notification title and content for an event
// performed by performer on target.
func DescribeEvent(eventType models.EventType, performer, target string, data datatypes.JSONMap) (title, content string) {
	switch eventType {
	case models.EventTypeJoin:
		return "New member joined", performer + " joined the group"
	case models.EventTypeLeave:
		return "Member left", performer + " left the group"
	case models.EventTypeAdd:
		return "New member added", fmt.Sprintf("%s added %s to the group", performer, target)
	case models.EventTypeRemove:
		return "Member removed", fmt.Sprintf("%s removed %s from the group", performer, target)
	case models.EventTypePromote:
		return "Admin promoted", fmt.Sprintf("%s promoted %s to admin", performer, target)
	case models.EventTypeDemote:
		return "Admin demoted", fmt.Sprintf("%s removed admin privileges from %s", performer, target)
	case models.EventTypeNameChange:
		return "Group name changed", fmt.Sprintf("%s changed group name from '%v' to '%v'",
			performer, data["old_name"], data["new_name"])
	default:
		return "Group updated", performer + " updated the group"
	}
}

func validateEvent(create models.GroupEventCreate) error {
	if !create.Type.Valid() {
		return fmt.Errorf("%w: invalid fields: event_type (oneof)", ErrValidation)
	}
	if create.Type.RequiresTarget() {
		if create.TargetUserID == nil {
			return fmt.Errorf("%w: invalid fields: target_user_id (required)", ErrValidation)
		}
		if *create.TargetUserID == create.UserID {
			return fmt.Errorf("%w: target user must differ from the performer", ErrBusinessLogicViolation)
		}
	}
	for _, key := range create.Type.RequiredDataKeys() {
		if _, ok := create.Data[key]; !ok {
			return fmt.Errorf("%w: invalid fields: event_data.%s (required)", ErrValidation, key)
		}
	}
	return nil
}

// CreateEvent appends the event to the chat's log and notifies every other
// active participant.
func (u *GroupEventsUsecase) CreateEvent(ctx context.Context, create models.GroupEventCreate) (event *models.GroupEvent, err error) {
	defer func() { logFailure(u.logger, "create_event", err, logrus.Fields{"chat_id": create.ChatID}) }()

	if err = validateStruct(u.validate, create); err != nil {
		return nil, err
	}
	if err = validateEvent(create); err != nil {
		return nil, err
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		chats := r.GetChatsStore()
		if err := ensureMember(ctx, chats, create.ChatID, create.UserID); err != nil {
			return err
		}

		performer, err := actorName(ctx, r, create.UserID)
		if err != nil {
			return err
		}
		target := ""
		if create.TargetUserID != nil {
			if target, err = actorName(ctx, r, *create.TargetUserID); err != nil {
				return err
			}
		}

		now := u.now()
		event = &models.GroupEvent{
			EventID:      uuid.NewString(),
			ChatID:       create.ChatID,
			UserID:       create.UserID,
			TargetUserID: create.TargetUserID,
			Type:         create.Type,
			Data:         create.Data,
			EventTime:    now,
		}
		if event.Data == nil {
			event.Data = datatypes.JSONMap{}
		}
		if err = r.GetGroupEventsStore().PutEvent(ctx, event); err != nil {
			return err
		}

		active, err := chats.GetActiveParticipants(ctx, create.ChatID)
		if err != nil {
			return err
		}

		title, content := DescribeEvent(event.Type, performer, target, event.Data)
		recipients := participantIDs(active, create.UserID)
		drafts := make([]models.NotificationCreate, len(recipients))
		for i, id := range recipients {
			drafts[i] = groupEventNotification(event, id, title, content)
		}
		if _, err = u.fanout.Notify(ctx, r, now, drafts); err != nil {
			return err
		}

		return r.GetUpdatesStore().GroupEventCreated(&models.GroupEventCreated{
			UpdateMeta: models.UpdateMeta{
				Timestamp: now,
				Audience:  participantIDs(active, ""),
			},
			Event: *event,
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func validateEventFilter(filter models.GroupEventFilter) error {
	if filter.Type != nil && !filter.Type.Valid() {
		return fmt.Errorf("%w: invalid fields: type (oneof)", ErrValidation)
	}
	return nil
}

func (u *GroupEventsUsecase) GetChatEvents(ctx context.Context, chatID, userID string, filter models.GroupEventFilter, page models.PageRequest) (p *models.Page[models.GroupEvent], err error) {
	defer func() { logFailure(u.logger, "get_chat_events", err, logrus.Fields{"chat_id": chatID}) }()

	if err = validateEventFilter(filter); err != nil {
		return nil, err
	}
	if err = ensureMember(ctx, u.registry.GetChatsStore(), chatID, userID); err != nil {
		return nil, err
	}
	return u.registry.GetGroupEventsStore().GetChatEvents(ctx, chatID, filter, page)
}

// GetUserEvents lists the events the user performed, or the ones aimed at
// the user when asTarget is set.
func (u *GroupEventsUsecase) GetUserEvents(ctx context.Context, userID string, asTarget bool, filter models.GroupEventFilter, page models.PageRequest) (p *models.Page[models.GroupEvent], err error) {
	defer func() { logFailure(u.logger, "get_user_events", err, logrus.Fields{"user_id": userID}) }()

	if err = validateEventFilter(filter); err != nil {
		return nil, err
	}
	return u.registry.GetGroupEventsStore().GetUserEvents(ctx, userID, asTarget, filter, page)
}

// GetEventStats counts events per type for a chat the user participates in,
// or across all chats when chatID is nil.
func (u *GroupEventsUsecase) GetEventStats(ctx context.Context, chatID *string, userID string) (stats map[models.EventType]models.EventStats, err error) {
	defer func() { logFailure(u.logger, "get_event_stats", err, logrus.Fields{"user_id": userID}) }()

	if chatID != nil {
		if err = ensureMember(ctx, u.registry.GetChatsStore(), *chatID, userID); err != nil {
			return nil, err
		}
	}
	return u.registry.GetGroupEventsStore().GetEventStats(ctx, chatID, u.now().Add(-eventStatsWindow))
}
