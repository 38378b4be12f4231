package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"github.com/sirupsen/logrus"
)

type MessagesUsecase struct {
	registry storage.Registry
	validate *validator.Validate
	fanout   *Fanout
	logger   *logrus.Logger
	now      func() time.Time
}

func NewMessagesUsecase(r storage.Registry, v *validator.Validate, f *Fanout, logger *logrus.Logger) *MessagesUsecase {
	return &MessagesUsecase{
		registry: r,
		validate: v,
		fanout:   f,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage stores the message, moves the chat's last activity and notifies
// every other active participant, all in one unit of work.
func (u *MessagesUsecase) SendMessage(ctx context.Context, send models.MessageSend) (msg *models.Message, err error) {
	defer func() { logFailure(u.logger, "send_message", err, logrus.Fields{"chat_id": send.ChatID}) }()

	if err = validateStruct(u.validate, send); err != nil {
		return nil, err
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		chats := r.GetChatsStore()
		messages := r.GetMessagesStore()

		if err := ensureMember(ctx, chats, send.ChatID, send.SenderID); err != nil {
			return err
		}

		chat, err := chats.GetChat(ctx, send.ChatID)
		if err != nil {
			return err
		}

		if send.ReplyTo != nil {
			replied, err := messages.GetMessage(ctx, *send.ReplyTo)
			if errors.Is(err, storage.ErrMessageNotFound) {
				return storage.ErrRepliedMessageNotFound
			} else if err != nil {
				return err
			}
			if replied.ChatID != send.ChatID {
				return fmt.Errorf("%w: replied message must be in the same chat", ErrBusinessLogicViolation)
			}
		}

		now := u.now()
		msg = &models.Message{
			MessageID: uuid.NewString(),
			ChatID:    send.ChatID,
			SenderID:  send.SenderID,
			Type:      send.Type,
			Content:   send.Content,
			MediaURL:  send.MediaURL,
			SentAt:    now,
			ReplyTo:   send.ReplyTo,
		}
		if err = messages.PutMessage(ctx, msg); err != nil {
			return err
		}
		if err = chats.TouchLastMessage(ctx, send.ChatID, now); err != nil {
			return err
		}
		if err = r.GetUsersStore().TouchLastSeen(ctx, send.SenderID, now); err != nil {
			return err
		}

		active, err := chats.GetActiveParticipants(ctx, send.ChatID)
		if err != nil {
			return err
		}

		recipients := participantIDs(active, send.SenderID)
		drafts := make([]models.NotificationCreate, len(recipients))
		for i, id := range recipients {
			drafts[i] = newMessageNotification(chat, msg, id)
		}
		if _, err = u.fanout.Notify(ctx, r, now, drafts); err != nil {
			return err
		}

		return r.GetUpdatesStore().MessageSent(&models.MessageSent{
			UpdateMeta: models.UpdateMeta{
				Timestamp: now,
				Audience:  participantIDs(active, ""),
			},
			MessageID: msg.MessageID,
			FromUser:  msg.SenderID,
			ChatID:    msg.ChatID,
			Type:      msg.Type,
			Content:   msg.Content,
			MediaURL:  msg.MediaURL,
			ReplyTo:   msg.ReplyTo,
		})
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// EditMessage replaces the content of the user's own message that is not deleted.
func (u *MessagesUsecase) EditMessage(ctx context.Context, messageID, userID string, content *string) (msg *models.Message, err error) {
	defer func() { logFailure(u.logger, "edit_message", err, logrus.Fields{"message_id": messageID}) }()

	if content == nil || strings.TrimSpace(*content) == "" {
		return nil, fmt.Errorf("%w: invalid fields: content (required)", ErrValidation)
	}
	if !ValidateUUID(messageID) {
		return nil, ErrNotAMessageSender
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetMessagesStore()
		ok, err := store.EditMessage(ctx, messageID, userID, content, u.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAMessageSender
		}
		msg, err = store.GetMessage(ctx, messageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// DeleteMessage soft-deletes the user's own message.
func (u *MessagesUsecase) DeleteMessage(ctx context.Context, messageID, userID string) (err error) {
	defer func() { logFailure(u.logger, "delete_message", err, logrus.Fields{"message_id": messageID}) }()

	if !ValidateUUID(messageID) {
		return ErrNotAMessageSender
	}

	ok, err := u.registry.GetMessagesStore().SoftDeleteMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAMessageSender
	}
	return nil
}

func (u *MessagesUsecase) MarkAsDelivered(ctx context.Context, messageIDs []string, userID string) (count int64, err error) {
	defer func() { logFailure(u.logger, "mark_as_delivered", err, logrus.Fields{"user_id": userID}) }()

	if messageIDs, err = canonicalIDs(messageIDs, "message_ids"); err != nil {
		return 0, err
	}
	if messageIDs = dedupe(messageIDs); len(messageIDs) == 0 {
		return 0, nil
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		count, err = r.GetMessagesStore().MarkAsDelivered(ctx, messageIDs, userID, u.now())
		return err
	})
	return count, err
}

// MarkAsRead records read statuses for messages the user received. Messages
// already read by the user are skipped, so repeated calls return zero.
func (u *MessagesUsecase) MarkAsRead(ctx context.Context, messageIDs []string, userID string) (count int64, err error) {
	defer func() { logFailure(u.logger, "mark_as_read", err, logrus.Fields{"user_id": userID}) }()

	if messageIDs, err = canonicalIDs(messageIDs, "message_ids"); err != nil {
		return 0, err
	}
	if messageIDs = dedupe(messageIDs); len(messageIDs) == 0 {
		return 0, nil
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		count, err = r.GetMessagesStore().MarkAsRead(ctx, messageIDs, userID, u.now())
		return err
	})
	return count, err
}

// GetUnreadCount counts messages the user has not read. A chat-scoped count
// is only available to active participants of that chat.
func (u *MessagesUsecase) GetUnreadCount(ctx context.Context, userID string, chatID *string) (count uint64, err error) {
	defer func() { logFailure(u.logger, "get_unread_messages", err, logrus.Fields{"user_id": userID}) }()

	if chatID != nil {
		if err = ensureMember(ctx, u.registry.GetChatsStore(), *chatID, userID); err != nil {
			return 0, err
		}
	}
	return u.registry.GetMessagesStore().GetUnreadCount(ctx, userID, chatID)
}

func (u *MessagesUsecase) GetChatMessages(ctx context.Context, chatID, userID string, page models.PageRequest) (p *models.Page[models.Message], err error) {
	defer func() { logFailure(u.logger, "get_chat_messages", err, logrus.Fields{"chat_id": chatID}) }()

	if err = ensureMember(ctx, u.registry.GetChatsStore(), chatID, userID); err != nil {
		return nil, err
	}
	return u.registry.GetMessagesStore().GetChatMessages(ctx, chatID, page)
}

func (u *MessagesUsecase) SearchChatMessages(ctx context.Context, chatID, userID, query string, page models.PageRequest) (p *models.Page[models.Message], err error) {
	defer func() { logFailure(u.logger, "search_chat_messages", err, logrus.Fields{"chat_id": chatID}) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: invalid fields: q (required)", ErrValidation)
	}
	if err = ensureMember(ctx, u.registry.GetChatsStore(), chatID, userID); err != nil {
		return nil, err
	}
	return u.registry.GetMessagesStore().SearchChatMessages(ctx, chatID, query, page)
}

// GetMessageReaders lists who read the message. Only participants of the
// message's chat may see it.
func (u *MessagesUsecase) GetMessageReaders(ctx context.Context, messageID, userID string, page models.PageRequest) (p *models.Page[models.MessageReadStatus], err error) {
	defer func() { logFailure(u.logger, "get_message_readers", err, logrus.Fields{"message_id": messageID}) }()

	if !ValidateUUID(messageID) {
		return nil, ErrNotFoundOrUnauthorized
	}

	messages := u.registry.GetMessagesStore()
	msg, err := messages.GetMessage(ctx, messageID)
	if errors.Is(err, storage.ErrMessageNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNotFoundOrUnauthorized, err)
	} else if err != nil {
		return nil, err
	}

	if err = ensureMember(ctx, u.registry.GetChatsStore(), msg.ChatID, userID); err != nil {
		return nil, err
	}
	return messages.GetMessageReaders(ctx, messageID, page)
}
