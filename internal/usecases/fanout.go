package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"gorm.io/datatypes"
)

const messagePreviewLength = 100

// Fanout turns drafts into notifications inside the caller's unit of work
// and publishes them to the recipients.
type Fanout struct {
	ttl time.Duration
}

func NewFanout(ttl time.Duration) *Fanout {
	if ttl <= 0 {
		ttl = models.DefaultNotificationTTL
	}
	return &Fanout{
		ttl: ttl,
	}
}

func (f *Fanout) Notify(ctx context.Context, r storage.Registry, now time.Time, drafts []models.NotificationCreate) ([]models.Notification, error) {
	if len(drafts) == 0 {
		return []models.Notification{}, nil
	}

	notifications := make([]models.Notification, len(drafts))
	for i, d := range drafts {
		notifications[i] = f.build(d, now)
	}

	if err := r.GetNotificationsStore().PutNotifications(ctx, notifications); err != nil {
		return nil, err
	}

	err := r.GetUpdatesStore().NotificationsCreated(&models.NotificationsCreated{
		UpdateMeta: models.UpdateMeta{
			Timestamp: now,
		},
		Notifications: notifications,
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (f *Fanout) build(d models.NotificationCreate, now time.Time) models.Notification {
	expiresAt := now.Add(f.ttl)
	if d.ExpiresAt != nil {
		expiresAt = *d.ExpiresAt
	}
	data := d.Data
	if data == nil {
		data = datatypes.JSONMap{}
	}
	return models.Notification{
		NotificationID: uuid.NewString(),
		UserID:         d.UserID,
		ChatID:         d.ChatID,
		MessageID:      d.MessageID,
		Type:           d.Type,
		Title:          d.Title,
		Content:        d.Content,
		Data:           data,
		Priority:       d.Priority,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      &expiresAt,
	}
}

func addedToChatNotification(chat *models.Chat, userID, actorName string) models.NotificationCreate {
	content := "You were added by " + actorName
	return models.NotificationCreate{
		UserID:  userID,
		Type:    models.NotificationTypeGroup,
		Title:   "Added to chat: " + chat.Name,
		Content: &content,
		Data:    datatypes.JSONMap{"chat_id": chat.ChatID},
	}
}

func removedFromChatNotification(chat *models.Chat, userID, actorName string) models.NotificationCreate {
	content := "You were removed by " + actorName
	return models.NotificationCreate{
		UserID:  userID,
		Type:    models.NotificationTypeGroup,
		Title:   "Removed from chat",
		Content: &content,
		Data:    datatypes.JSONMap{"chat_id": chat.ChatID},
	}
}

func settingsUpdatedNotification(chat *models.Chat, userID, actorName string) models.NotificationCreate {
	content := "Settings updated by " + actorName
	return models.NotificationCreate{
		UserID:  userID,
		Type:    models.NotificationTypeGroup,
		Title:   "Chat settings updated",
		Content: &content,
		Data:    datatypes.JSONMap{"chat_id": chat.ChatID},
	}
}

func newMessageNotification(chat *models.Chat, msg *models.Message, userID string) models.NotificationCreate {
	content := messagePreview(msg.Content)
	chatID, messageID := chat.ChatID, msg.MessageID
	return models.NotificationCreate{
		UserID:    userID,
		Type:      models.NotificationTypeMessage,
		Title:     "New message in " + chat.Name,
		Content:   &content,
		Data:      datatypes.JSONMap{"chat_id": chat.ChatID, "message_id": msg.MessageID},
		ChatID:    &chatID,
		MessageID: &messageID,
	}
}

// messagePreview cuts the content to its first characters.
func messagePreview(content *string) string {
	if content == nil || *content == "" {
		return "New message"
	}
	runes := []rune(*content)
	if len(runes) > messagePreviewLength {
		runes = runes[:messagePreviewLength]
	}
	return string(runes)
}

func groupEventNotification(event *models.GroupEvent, userID, title, content string) models.NotificationCreate {
	return models.NotificationCreate{
		UserID:  userID,
		Type:    models.NotificationTypeGroup,
		Title:   title,
		Content: &content,
		Data:    datatypes.JSONMap{"chat_id": event.ChatID, "event_id": event.EventID},
	}
}

func actorName(ctx context.Context, r storage.Registry, userID string) (string, error) {
	user, err := r.GetUsersStore().GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.FullName(), nil
}
