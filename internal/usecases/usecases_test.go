package usecases

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/google/uuid"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
)

type UsecasesTestSuite struct {
	storage.PostgresTestSuite
	registry      *storage.DefaultRegistry
	chats         *ChatsUsecase
	messages      *MessagesUsecase
	events        *GroupEventsUsecase
	notifications *NotificationsUsecase
	users         []models.User
}

func TestUsecasesTestSuite(t *testing.T) {
	suite.Run(t, &UsecasesTestSuite{})
}

func (s *UsecasesTestSuite) build(producer sarama.SyncProducer) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.registry = storage.NewRegistry(s.DB(), producer, nil, &storage.RegistryConfig{
		Updates:   &storage.UpdatesStoreConfig{UpdatesTopic: "updates"},
		ChunkSize: 2,
	})
	v := NewValidator()
	f := NewFanout(0)
	s.chats = NewChatsUsecase(s.registry, v, f, logger)
	s.messages = NewMessagesUsecase(s.registry, v, f, logger)
	s.events = NewGroupEventsUsecase(s.registry, v, f, logger)
	s.notifications = NewNotificationsUsecase(s.registry, v, f, logger)
}

func (s *UsecasesTestSuite) SetupTest() {
	s.build(nil)
	s.users = s.CreateUsers(4)
}

func (s *UsecasesTestSuite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s.T().Cleanup(cancel)
	return ctx
}

func (s *UsecasesTestSuite) id(i int) string {
	return s.users[i].UserID
}

func (s *UsecasesTestSuite) notificationsOf(userID string) []models.Notification {
	page, err := s.notifications.GetUserNotifications(s.ctx(), userID, models.NotificationFilter{}, models.PageRequest{PerPage: 100})
	require.NoError(s.T(), err)
	return page.Items
}

func (s *UsecasesTestSuite) groupChat(members ...int) *models.Chat {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = s.id(m)
	}
	chat, err := s.chats.CreateChat(s.ctx(), models.ChatCreate{
		Type:           models.ChatTypeGroup,
		Name:           "Study group",
		CreatorID:      ids[0],
		ParticipantIDs: ids[1:],
	})
	require.NoError(s.T(), err)
	return chat
}

func (s *UsecasesTestSuite) Test_CreateChat() {
	_, err := s.chats.CreateChat(s.ctx(), models.ChatCreate{
		Type:           models.ChatTypePrivate,
		Name:           "dm",
		CreatorID:      s.id(0),
		ParticipantIDs: []string{s.id(1), s.id(2)},
	})
	assert.ErrorIs(s.T(), err, ErrValidation, "private chat takes exactly two participants")

	_, err = s.chats.CreateChat(s.ctx(), models.ChatCreate{
		Type:           models.ChatTypeGroup,
		Name:           "alone",
		CreatorID:      s.id(0),
		ParticipantIDs: []string{s.id(0)},
	})
	assert.ErrorIs(s.T(), err, ErrValidation, "creator is deduplicated")

	_, err = s.chats.CreateChat(s.ctx(), models.ChatCreate{Type: "channel", Name: "x", CreatorID: s.id(0)})
	assert.ErrorIs(s.T(), err, ErrValidation)

	chat, err := s.chats.CreateChat(s.ctx(), models.ChatCreate{
		Type:           models.ChatTypePrivate,
		Name:           "dm",
		CreatorID:      s.id(0),
		ParticipantIDs: []string{s.id(1), s.id(1)},
	})
	require.NoError(s.T(), err)

	full, err := s.chats.GetChatWithMembers(s.ctx(), chat.ChatID, s.id(1))
	require.NoError(s.T(), err)
	require.Len(s.T(), full.Members, 2)
	for _, m := range full.Members {
		assert.Equal(s.T(), m.UserID == s.id(0), m.IsAdmin, "only the creator is admin")
	}

	_, err = s.chats.GetChatWithMembers(s.ctx(), chat.ChatID, s.id(2))
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized)
}

func (s *UsecasesTestSuite) Test_AddParticipants() {
	chat := s.groupChat(0, 1)

	ok, err := s.chats.AddParticipants(s.ctx(), uuid.NewString(), []string{s.id(2)}, s.id(0))
	require.NoError(s.T(), err)
	assert.False(s.T(), ok, "missing chat")

	ok, err = s.chats.AddParticipants(s.ctx(), chat.ChatID, []string{s.id(1), s.id(2), s.id(2)}, s.id(0))
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	assert.Empty(s.T(), s.notificationsOf(s.id(1)), "active participants are not re-added")
	added := s.notificationsOf(s.id(2))
	require.Len(s.T(), added, 1)
	assert.Equal(s.T(), "Added to chat: Study group", added[0].Title)
	assert.Equal(s.T(), "You were added by "+s.users[0].FullName(), *added[0].Content)
	assert.Equal(s.T(), models.NotificationTypeGroup, added[0].Type)
	assert.Equal(s.T(), chat.ChatID, added[0].Data["chat_id"])

	private, err := s.chats.CreateChat(s.ctx(), models.ChatCreate{
		Type: models.ChatTypePrivate, Name: "dm", CreatorID: s.id(0), ParticipantIDs: []string{s.id(1)},
	})
	require.NoError(s.T(), err)
	ok, err = s.chats.AddParticipants(s.ctx(), private.ChatID, []string{s.id(3)}, s.id(0))
	require.NoError(s.T(), err)
	assert.False(s.T(), ok, "private chat membership never changes")
}

func (s *UsecasesTestSuite) Test_AddParticipants_CaseVariantIDs() {
	chat := s.groupChat(0, 1)
	target := s.id(2)

	ok, err := s.chats.AddParticipants(s.ctx(), strings.ToUpper(chat.ChatID), []string{target, strings.ToUpper(target)}, s.id(0))
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	require.Len(s.T(), s.notificationsOf(target), 1, "spellings of one id add the user once")

	members, err := s.chats.GetChatWithMembers(s.ctx(), chat.ChatID, target)
	require.NoError(s.T(), err)
	assert.Len(s.T(), members.Members, 3)

	_, err = s.chats.AddParticipants(s.ctx(), chat.ChatID, []string{"urn:uuid:" + s.id(3)}, s.id(0))
	assert.ErrorIs(s.T(), err, ErrValidation)
}

func (s *UsecasesTestSuite) Test_RemoveAndRejoin() {
	chat := s.groupChat(0, 1, 2)

	ok, err := s.chats.RemoveParticipant(s.ctx(), chat.ChatID, s.id(2), s.id(0))
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.chats.RemoveParticipant(s.ctx(), chat.ChatID, s.id(2), s.id(0))
	require.NoError(s.T(), err)
	assert.False(s.T(), ok, "user already left")

	removed := s.notificationsOf(s.id(2))
	require.Len(s.T(), removed, 1)
	assert.Equal(s.T(), "Removed from chat", removed[0].Title)

	ok, err = s.chats.AddParticipants(s.ctx(), chat.ChatID, []string{s.id(2)}, s.id(1))
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	full, err := s.chats.GetChatWithMembers(s.ctx(), chat.ChatID, s.id(2))
	require.NoError(s.T(), err)
	assert.Len(s.T(), full.Members, 3)

	var rows int
	require.NoError(s.T(), s.DB().Get(&rows, "SELECT count(*) FROM chat_participants WHERE chat_id = $1", chat.ChatID))
	assert.Equal(s.T(), 3, rows)
}

func (s *UsecasesTestSuite) Test_UpdateChatSettings() {
	chat := s.groupChat(0, 1, 2)

	name := "Renamed"
	ok, err := s.chats.UpdateChatSettings(s.ctx(), chat.ChatID, models.ChatSettings{Name: &name}, s.id(0))
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	got, err := s.chats.GetChat(s.ctx(), chat.ChatID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), name, got.Name)

	assert.Empty(s.T(), s.notificationsOf(s.id(0)), "actor is not notified")
	for _, i := range []int{1, 2} {
		n := s.notificationsOf(s.id(i))
		require.Len(s.T(), n, 1)
		assert.Equal(s.T(), "Chat settings updated", n[0].Title)
		assert.Equal(s.T(), "Settings updated by "+s.users[0].FullName(), *n[0].Content)
	}

	ok, err = s.chats.UpdateChatSettings(s.ctx(), uuid.NewString(), models.ChatSettings{Name: &name}, s.id(0))
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *UsecasesTestSuite) Test_SendMessage() {
	chat := s.groupChat(0, 1, 2)
	content := "Lecture moved to room 204"

	_, err := s.messages.SendMessage(s.ctx(), models.MessageSend{
		ChatID: chat.ChatID, SenderID: s.id(3), Type: models.MessageTypeText, Content: &content,
	})
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized)

	msg, err := s.messages.SendMessage(s.ctx(), models.MessageSend{
		ChatID: chat.ChatID, SenderID: s.id(0), Type: models.MessageTypeText, Content: &content,
	})
	require.NoError(s.T(), err)

	got, err := s.chats.GetChat(s.ctx(), chat.ChatID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got.LastMessageAt)
	assert.WithinDuration(s.T(), msg.SentAt, *got.LastMessageAt, time.Millisecond)

	assert.Empty(s.T(), s.notificationsOf(s.id(0)))
	for _, i := range []int{1, 2} {
		n := s.notificationsOf(s.id(i))
		require.Len(s.T(), n, 1)
		assert.Equal(s.T(), "New message in Study group", n[0].Title)
		assert.Equal(s.T(), content, *n[0].Content)
		assert.Equal(s.T(), msg.MessageID, *n[0].MessageID)
		assert.Equal(s.T(), msg.MessageID, n[0].Data["message_id"])
	}

	other := s.groupChat(0, 1)
	_, err = s.messages.SendMessage(s.ctx(), models.MessageSend{
		ChatID: other.ChatID, SenderID: s.id(0), Type: models.MessageTypeText, Content: &content, ReplyTo: &msg.MessageID,
	})
	assert.ErrorIs(s.T(), err, ErrBusinessLogicViolation, "reply must stay in the same chat")

	missing := uuid.NewString()
	_, err = s.messages.SendMessage(s.ctx(), models.MessageSend{
		ChatID: chat.ChatID, SenderID: s.id(0), Type: models.MessageTypeText, Content: &content, ReplyTo: &missing,
	})
	assert.ErrorIs(s.T(), err, storage.ErrRepliedMessageNotFound)
}

func (s *UsecasesTestSuite) Test_SendMessage_RequiredPayload() {
	chat := s.groupChat(0, 1)
	empty := "  "
	url := "https://files.campus.example/slides.pdf"

	cases := []struct {
		name string
		send models.MessageSend
		err  error
	}{
		{"text without content", models.MessageSend{Type: models.MessageTypeText}, ErrValidation},
		{"text with blank content", models.MessageSend{Type: models.MessageTypeText, Content: &empty}, ErrValidation},
		{"image without media", models.MessageSend{Type: models.MessageTypeImage}, ErrValidation},
		{"file without media", models.MessageSend{Type: models.MessageTypeFile, Content: &url}, ErrValidation},
		{"file with media", models.MessageSend{Type: models.MessageTypeFile, MediaURL: &url}, nil},
	}

	for _, c := range cases {
		s.Run(c.name, func() {
			c.send.ChatID, c.send.SenderID = chat.ChatID, s.id(0)
			_, err := s.messages.SendMessage(s.ctx(), c.send)
			if c.err == nil {
				assert.NoError(s.T(), err)
			} else {
				assert.ErrorIs(s.T(), err, c.err)
			}
		})
	}

	page, err := s.messages.GetChatMessages(s.ctx(), chat.ChatID, s.id(0), models.PageRequest{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(1), page.Total, "rejected messages are not stored")
}

func (s *UsecasesTestSuite) Test_EditAndDelete_Ownership() {
	chat := s.groupChat(0, 1)
	content := "draft"
	msg, err := s.messages.SendMessage(s.ctx(), models.MessageSend{
		ChatID: chat.ChatID, SenderID: s.id(0), Type: models.MessageTypeText, Content: &content,
	})
	require.NoError(s.T(), err)

	hijack := "mine now"
	_, err = s.messages.EditMessage(s.ctx(), msg.MessageID, s.id(1), &hijack)
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized)
	assert.ErrorIs(s.T(), s.messages.DeleteMessage(s.ctx(), msg.MessageID, s.id(1)), ErrNotFoundOrUnauthorized)

	fixed := "final"
	edited, err := s.messages.EditMessage(s.ctx(), msg.MessageID, s.id(0), &fixed)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), fixed, *edited.Content)
	assert.NotNil(s.T(), edited.EditedAt)

	_, err = s.messages.EditMessage(s.ctx(), msg.MessageID, s.id(0), nil)
	assert.ErrorIs(s.T(), err, ErrValidation)
	blank := ""
	_, err = s.messages.EditMessage(s.ctx(), msg.MessageID, s.id(0), &blank)
	assert.ErrorIs(s.T(), err, ErrValidation)
	kept, err := s.registry.GetMessagesStore().GetMessage(s.ctx(), msg.MessageID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), fixed, *kept.Content, "rejected edits leave the content")

	require.NoError(s.T(), s.messages.DeleteMessage(s.ctx(), msg.MessageID, s.id(0)))
	_, err = s.messages.EditMessage(s.ctx(), msg.MessageID, s.id(0), &hijack)
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized)
}

func (s *UsecasesTestSuite) Test_ReadTracking() {
	chat := s.groupChat(0, 1)
	ids := make([]string, 3)
	for i := range ids {
		content := "msg"
		msg, err := s.messages.SendMessage(s.ctx(), models.MessageSend{
			ChatID: chat.ChatID, SenderID: s.id(0), Type: models.MessageTypeText, Content: &content,
		})
		require.NoError(s.T(), err)
		ids[i] = msg.MessageID
	}

	unread, err := s.messages.GetUnreadCount(s.ctx(), s.id(1), nil)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(3), unread)

	delivered, err := s.messages.MarkAsDelivered(s.ctx(), ids, s.id(1))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), delivered)

	read, err := s.messages.MarkAsRead(s.ctx(), ids, s.id(1))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), read)

	read, err = s.messages.MarkAsRead(s.ctx(), ids, s.id(1))
	require.NoError(s.T(), err)
	assert.Zero(s.T(), read)

	read, err = s.messages.MarkAsRead(s.ctx(), ids, s.id(0))
	require.NoError(s.T(), err)
	assert.Zero(s.T(), read, "own messages are never read by the sender")

	unread, err = s.messages.GetUnreadCount(s.ctx(), s.id(1), &chat.ChatID)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), unread)

	_, err = s.messages.GetUnreadCount(s.ctx(), s.id(3), &chat.ChatID)
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized, "outsiders can't count a chat's messages")

	readers, err := s.messages.GetMessageReaders(s.ctx(), ids[0], s.id(0), models.PageRequest{})
	require.NoError(s.T(), err)
	require.Len(s.T(), readers.Items, 1)
	assert.Equal(s.T(), s.id(1), readers.Items[0].UserID)

	_, err = s.messages.GetMessageReaders(s.ctx(), ids[0], s.id(3), models.PageRequest{})
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized)
}

func (s *UsecasesTestSuite) Test_CreateEvent() {
	chat := s.groupChat(0, 1, 2)
	target := s.id(1)

	event, err := s.events.CreateEvent(s.ctx(), models.GroupEventCreate{
		ChatID: chat.ChatID, UserID: s.id(0), Type: models.EventTypePromote, TargetUserID: &target,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.EventTypePromote, event.Type)

	assert.Empty(s.T(), s.notificationsOf(s.id(0)))
	for _, i := range []int{1, 2} {
		n := s.notificationsOf(s.id(i))
		require.Len(s.T(), n, 1)
		assert.Equal(s.T(), "Admin promoted", n[0].Title)
		assert.Equal(s.T(), s.users[0].FullName()+" promoted "+s.users[1].FullName()+" to admin", *n[0].Content)
		assert.Equal(s.T(), event.EventID, n[0].Data["event_id"])
	}

	_, err = s.events.CreateEvent(s.ctx(), models.GroupEventCreate{
		ChatID: chat.ChatID, UserID: s.id(3), Type: models.EventTypeJoin,
	})
	assert.ErrorIs(s.T(), err, ErrNotFoundOrUnauthorized, "performer must be an active participant")

	unknown := uuid.NewString()
	_, err = s.events.CreateEvent(s.ctx(), models.GroupEventCreate{
		ChatID: chat.ChatID, UserID: s.id(0), Type: models.EventTypeAdd, TargetUserID: &unknown,
	})
	assert.ErrorIs(s.T(), err, storage.ErrUserNotFound)

	_, err = s.events.CreateEvent(s.ctx(), models.GroupEventCreate{
		ChatID: chat.ChatID, UserID: s.id(0), Type: models.EventTypeNameChange,
		Data: datatypes.JSONMap{"old_name": "Study group", "new_name": "Exam prep"},
	})
	require.NoError(s.T(), err)

	page, err := s.events.GetChatEvents(s.ctx(), chat.ChatID, s.id(2), models.GroupEventFilter{}, models.PageRequest{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(2), page.Total)

	stats, err := s.events.GetEventStats(s.ctx(), &chat.ChatID, s.id(2))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.EventStats{Total: 1, Last24h: 1}, stats[models.EventTypeNameChange])
}

func (s *UsecasesTestSuite) Test_NotificationLedger() {
	ctx := s.ctx()
	title := "Campus maintenance"

	_, err := s.notifications.Create(ctx, models.NotificationCreate{
		UserID: s.id(0), Type: models.NotificationTypeSystem, Title: title, Priority: 11,
	})
	assert.ErrorIs(s.T(), err, ErrValidation)

	recipients := []string{s.id(0), s.id(1), s.id(2), s.id(3), s.id(0)}
	created, err := s.notifications.CreateBulk(ctx, recipients, models.NotificationCreate{
		Type: models.NotificationTypeSystem, Title: title, Priority: 5,
	})
	require.NoError(s.T(), err)
	assert.Len(s.T(), created, 4, "duplicate recipients are dropped")

	past := time.Now().Add(-time.Minute)
	expired, err := s.notifications.Create(ctx, models.NotificationCreate{
		UserID: s.id(0), Type: models.NotificationTypeCourse, Title: "Old", ExpiresAt: &past,
	})
	require.NoError(s.T(), err)

	count, err := s.notifications.GetUnreadCount(ctx, s.id(0), nil)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(1), count, "expired notifications are hidden")

	mine := s.notificationsOf(s.id(0))
	require.Len(s.T(), mine, 1)

	seen, err := s.notifications.MarkAsSeen(ctx, []string{mine[0].NotificationID}, s.id(1))
	require.NoError(s.T(), err)
	assert.Zero(s.T(), seen, "only the owner can change the state")

	read, err := s.notifications.MarkAsRead(ctx, []string{mine[0].NotificationID}, s.id(0))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), read)

	stats, err := s.notifications.GetStats(ctx, s.id(0))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.NotificationStats{Total: 1, Unread: 0, Unseen: 0}, stats[models.NotificationTypeSystem])

	deleted, err := s.notifications.DeleteExpired(ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), deleted)

	var left int
	require.NoError(s.T(), s.DB().Get(&left, "SELECT count(*) FROM notifications WHERE notification_id = $1", expired.NotificationID))
	assert.Zero(s.T(), left)
}

func (s *UsecasesTestSuite) Test_PublishFailureRollsBack() {
	chat := s.groupChat(0, 1)

	producer := mocks.NewSyncProducer(s.T(), sarama.NewConfig())
	producer.ExpectSendMessageAndFail(errors.New("broker is down"))
	s.build(producer)

	content := "lost"
	_, err := s.messages.SendMessage(s.ctx(), models.MessageSend{
		ChatID: chat.ChatID, SenderID: s.id(0), Type: models.MessageTypeText, Content: &content,
	})
	assert.Error(s.T(), err)
	require.NoError(s.T(), producer.Close())

	var messages, notifications int
	require.NoError(s.T(), s.DB().Get(&messages, "SELECT count(*) FROM messages"))
	require.NoError(s.T(), s.DB().Get(&notifications, "SELECT count(*) FROM notifications"))
	assert.Zero(s.T(), messages)
	assert.Zero(s.T(), notifications)
}
