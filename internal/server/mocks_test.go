package server

import (
	"context"

	"github.com/practice-sem-2/campus-chat-service/internal/models"
	"github.com/stretchr/testify/mock"
)

type chatServiceMock struct {
	mock.Mock
}

func (m *chatServiceMock) CreateChat(ctx context.Context, create models.ChatCreate) (*models.Chat, error) {
	args := m.Called(ctx, create)
	chat, _ := args.Get(0).(*models.Chat)
	return chat, args.Error(1)
}

func (m *chatServiceMock) AddParticipants(ctx context.Context, chatID string, userIDs []string, actorID string) (bool, error) {
	args := m.Called(ctx, chatID, userIDs, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *chatServiceMock) RemoveParticipant(ctx context.Context, chatID, userID, actorID string) (bool, error) {
	args := m.Called(ctx, chatID, userID, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *chatServiceMock) UpdateChatSettings(ctx context.Context, chatID string, settings models.ChatSettings, actorID string) (bool, error) {
	args := m.Called(ctx, chatID, settings, actorID)
	return args.Bool(0), args.Error(1)
}

func (m *chatServiceMock) GetChatWithMembers(ctx context.Context, chatID, userID string) (*models.ChatWithMembers, error) {
	args := m.Called(ctx, chatID, userID)
	chat, _ := args.Get(0).(*models.ChatWithMembers)
	return chat, args.Error(1)
}

func (m *chatServiceMock) GetUserChats(ctx context.Context, userID string, chatType *models.ChatType, page models.PageRequest) (*models.Page[models.Chat], error) {
	args := m.Called(ctx, userID, chatType, page)
	p, _ := args.Get(0).(*models.Page[models.Chat])
	return p, args.Error(1)
}

func (m *chatServiceMock) DeleteChat(ctx context.Context, chatID, userID string) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

type messageServiceMock struct {
	mock.Mock
}

func (m *messageServiceMock) SendMessage(ctx context.Context, send models.MessageSend) (*models.Message, error) {
	args := m.Called(ctx, send)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func (m *messageServiceMock) EditMessage(ctx context.Context, messageID, userID string, content *string) (*models.Message, error) {
	args := m.Called(ctx, messageID, userID, content)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func (m *messageServiceMock) DeleteMessage(ctx context.Context, messageID, userID string) error {
	return m.Called(ctx, messageID, userID).Error(0)
}

func (m *messageServiceMock) MarkAsDelivered(ctx context.Context, messageIDs []string, userID string) (int64, error) {
	args := m.Called(ctx, messageIDs, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *messageServiceMock) MarkAsRead(ctx context.Context, messageIDs []string, userID string) (int64, error) {
	args := m.Called(ctx, messageIDs, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *messageServiceMock) GetUnreadCount(ctx context.Context, userID string, chatID *string) (uint64, error) {
	args := m.Called(ctx, userID, chatID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *messageServiceMock) GetChatMessages(ctx context.Context, chatID, userID string, page models.PageRequest) (*models.Page[models.Message], error) {
	args := m.Called(ctx, chatID, userID, page)
	p, _ := args.Get(0).(*models.Page[models.Message])
	return p, args.Error(1)
}

func (m *messageServiceMock) SearchChatMessages(ctx context.Context, chatID, userID, query string, page models.PageRequest) (*models.Page[models.Message], error) {
	args := m.Called(ctx, chatID, userID, query, page)
	p, _ := args.Get(0).(*models.Page[models.Message])
	return p, args.Error(1)
}

func (m *messageServiceMock) GetMessageReaders(ctx context.Context, messageID, userID string, page models.PageRequest) (*models.Page[models.MessageReadStatus], error) {
	args := m.Called(ctx, messageID, userID, page)
	p, _ := args.Get(0).(*models.Page[models.MessageReadStatus])
	return p, args.Error(1)
}

type eventServiceMock struct {
	mock.Mock
}

func (m *eventServiceMock) CreateEvent(ctx context.Context, create models.GroupEventCreate) (*models.GroupEvent, error) {
	args := m.Called(ctx, create)
	e, _ := args.Get(0).(*models.GroupEvent)
	return e, args.Error(1)
}

func (m *eventServiceMock) GetChatEvents(ctx context.Context, chatID, userID string, filter models.GroupEventFilter, page models.PageRequest) (*models.Page[models.GroupEvent], error) {
	args := m.Called(ctx, chatID, userID, filter, page)
	p, _ := args.Get(0).(*models.Page[models.GroupEvent])
	return p, args.Error(1)
}

func (m *eventServiceMock) GetUserEvents(ctx context.Context, userID string, asTarget bool, filter models.GroupEventFilter, page models.PageRequest) (*models.Page[models.GroupEvent], error) {
	args := m.Called(ctx, userID, asTarget, filter, page)
	p, _ := args.Get(0).(*models.Page[models.GroupEvent])
	return p, args.Error(1)
}

func (m *eventServiceMock) GetEventStats(ctx context.Context, chatID *string, userID string) (map[models.EventType]models.EventStats, error) {
	args := m.Called(ctx, chatID, userID)
	stats, _ := args.Get(0).(map[models.EventType]models.EventStats)
	return stats, args.Error(1)
}

type notificationServiceMock struct {
	mock.Mock
}

func (m *notificationServiceMock) Create(ctx context.Context, create models.NotificationCreate) (*models.Notification, error) {
	args := m.Called(ctx, create)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *notificationServiceMock) CreateBulk(ctx context.Context, userIDs []string, template models.NotificationCreate) ([]models.Notification, error) {
	args := m.Called(ctx, userIDs, template)
	ns, _ := args.Get(0).([]models.Notification)
	return ns, args.Error(1)
}

func (m *notificationServiceMock) MarkAsSeen(ctx context.Context, ids []string, userID string) (int64, error) {
	args := m.Called(ctx, ids, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notificationServiceMock) MarkAsRead(ctx context.Context, ids []string, userID string) (int64, error) {
	args := m.Called(ctx, ids, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notificationServiceMock) GetUnreadCount(ctx context.Context, userID string, notificationType *models.NotificationType) (uint64, error) {
	args := m.Called(ctx, userID, notificationType)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *notificationServiceMock) GetUserNotifications(ctx context.Context, userID string, filter models.NotificationFilter, page models.PageRequest) (*models.Page[models.Notification], error) {
	args := m.Called(ctx, userID, filter, page)
	p, _ := args.Get(0).(*models.Page[models.Notification])
	return p, args.Error(1)
}

func (m *notificationServiceMock) GetStats(ctx context.Context, userID string) (map[models.NotificationType]models.NotificationStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(map[models.NotificationType]models.NotificationStats)
	return stats, args.Error(1)
}
