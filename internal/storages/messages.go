package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

var (
	ErrRepliedMessageNotFound = errors.New("message replies to a not existing message")
	ErrMessageAlreadyExists   = errors.New("message with provided message_id already exists")
	ErrMessageNotFound        = errors.New("message does not exist")
)

const (
	MessagesPrimaryKey          = "messages_pkey"
	MessagesReplyToForeignKey   = "messages_reply_to_fkey"
	MessagesChatIdForeignKey    = "messages_chat_id_fkey"
	MessagesSenderIdForeignKey  = "messages_sender_id_fkey"
	MessageReadStatusPrimaryKey = "message_read_status_pkey"
)

var messageColumns = []string{
	"message_id", "chat_id", "sender_id", "message_type", "content", "media_url",
	"sent_at", "delivered_at", "edited_at", "reply_to", "is_deleted",
}

type MessagesStorage struct {
	db        Scope
	chunkSize int
}

func NewMessagesStorage(db Scope, chunkSize int) *MessagesStorage {
	return &MessagesStorage{
		db:        db,
		chunkSize: chunkSize,
	}
}

func (s *MessagesStorage) PutMessage(ctx context.Context, message *models.Message) error {
	query, args, err := sq.Insert("messages").
		Columns(messageColumns...).
		Values(
			message.MessageID, message.ChatID, message.SenderID, message.Type, message.Content, message.MediaURL,
			message.SentAt, message.DeliveredAt, message.EditedAt, message.ReplyTo, message.IsDeleted,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch GetPgxConstraintName(err) {
	case MessagesReplyToForeignKey:
		return ErrRepliedMessageNotFound
	case MessagesChatIdForeignKey:
		return ErrChatNotFound
	case MessagesSenderIdForeignKey:
		return ErrUserNotFound
	case MessagesPrimaryKey:
		return ErrMessageAlreadyExists
	}
	return err
}

func (s *MessagesStorage) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	query, args, err := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"message_id": messageID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	msg := models.Message{}
	err = s.db.GetContext(ctx, &msg, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	} else if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessage replaces the content of a message that belongs to senderID and
// is not deleted. It reports false when no such message exists.
func (s *MessagesStorage) EditMessage(ctx context.Context, messageID, senderID string, content *string, at time.Time) (bool, error) {
	return s.updateOwned(ctx, messageID, senderID, map[string]interface{}{
		"content":   content,
		"edited_at": at,
	})
}

// SoftDeleteMessage flags the message as deleted. Replies and read statuses are kept.
func (s *MessagesStorage) SoftDeleteMessage(ctx context.Context, messageID, senderID string) (bool, error) {
	return s.updateOwned(ctx, messageID, senderID, map[string]interface{}{
		"is_deleted": true,
	})
}

func (s *MessagesStorage) updateOwned(ctx context.Context, messageID, senderID string, values map[string]interface{}) (bool, error) {
	query, args, err := sq.Update("messages").
		SetMap(values).
		Where(sq.Eq{
			"message_id": messageID,
			"sender_id":  senderID,
			"is_deleted": false,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return false, err
	}

	count, err := rowsAffected(s.db.ExecContext(ctx, query, args...))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkAsDelivered stamps delivered_at on messages userID received and that
// were not delivered yet. It returns the number of updated messages.
func (s *MessagesStorage) MarkAsDelivered(ctx context.Context, messageIDs []string, userID string, at time.Time) (int64, error) {
	var total int64
	for _, chunk := range chunks(messageIDs, s.chunkSize) {
		query, args, err := sq.Update("messages").
			Set("delivered_at", at).
			Where(sq.Eq{
				"message_id":   chunk,
				"delivered_at": nil,
			}).
			Where(sq.NotEq{"sender_id": userID}).
			PlaceholderFormat(sq.Dollar).
			ToSql()

		if err != nil {
			return 0, err
		}

		count, err := rowsAffected(s.db.ExecContext(ctx, query, args...))
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// MarkAsRead records a read status for every listed message that was not sent
// by userID. Statuses that already exist are kept with their original read_at.
// It returns the number of newly created statuses.
func (s *MessagesStorage) MarkAsRead(ctx context.Context, messageIDs []string, userID string, at time.Time) (int64, error) {
	var total int64
	for _, chunk := range chunks(messageIDs, s.chunkSize) {
		source := sq.Select("message_id").
			Column(sq.Expr("?::uuid", userID)).
			Column(sq.Expr("?::timestamptz", at)).
			From("messages").
			Where(sq.Eq{"message_id": chunk}).
			Where(sq.NotEq{"sender_id": userID})

		query, args, err := sq.Insert("message_read_status").
			Columns("message_id", "user_id", "read_at").
			Select(source).
			Suffix("ON CONFLICT ON CONSTRAINT " + MessageReadStatusPrimaryKey + " DO NOTHING").
			PlaceholderFormat(sq.Dollar).
			ToSql()

		if err != nil {
			return 0, err
		}

		count, err := rowsAffected(s.db.ExecContext(ctx, query, args...))
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// GetUnreadCount counts messages not sent by userID that userID has no read
// status for. Without chatID only chats the user still participates in are counted.
func (s *MessagesStorage) GetUnreadCount(ctx context.Context, userID string, chatID *string) (uint64, error) {
	builder := sq.Select("count(*)").
		From("messages m").
		Where(sq.NotEq{"m.sender_id": userID}).
		Where(sq.Expr(
			"NOT EXISTS (SELECT 1 FROM message_read_status r WHERE r.message_id = m.message_id AND r.user_id = ?)",
			userID,
		))

	if chatID != nil {
		builder = builder.Where(sq.Eq{"m.chat_id": *chatID})
	} else {
		builder = builder.
			Join("chat_participants p ON p.chat_id = m.chat_id").
			Where(sq.Eq{
				"p.user_id": userID,
				"p.left_at": nil,
			})
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return 0, err
	}

	var count uint64
	err = s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

// GetChatMessages lists the chat's messages that are not deleted, newest first.
func (s *MessagesStorage) GetChatMessages(ctx context.Context, chatID string, page models.PageRequest) (*models.Page[models.Message], error) {
	base := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{
			"chat_id":    chatID,
			"is_deleted": false,
		})

	return selectPage[models.Message](ctx, s.db, base, page, "sent_at DESC", "message_id")
}

func (s *MessagesStorage) SearchChatMessages(ctx context.Context, chatID, text string, page models.PageRequest) (*models.Page[models.Message], error) {
	base := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{
			"chat_id":    chatID,
			"is_deleted": false,
		}).
		Where(sq.ILike{"content": "%" + escapeLike(text) + "%"})

	return selectPage[models.Message](ctx, s.db, base, page, "sent_at DESC", "message_id")
}

// GetMessageReaders lists read statuses of the message, earliest read first.
func (s *MessagesStorage) GetMessageReaders(ctx context.Context, messageID string, page models.PageRequest) (*models.Page[models.MessageReadStatus], error) {
	base := sq.Select("message_id", "user_id", "read_at").
		From("message_read_status").
		Where(sq.Eq{"message_id": messageID})

	return selectPage[models.MessageReadStatus](ctx, s.db, base, page, "read_at", "user_id")
}
