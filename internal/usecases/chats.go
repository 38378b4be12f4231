package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"github.com/sirupsen/logrus"
)

type ChatsUsecase struct {
	registry storage.Registry
	validate *validator.Validate
	fanout   *Fanout
	logger   *logrus.Logger
	now      func() time.Time
}

func NewChatsUsecase(r storage.Registry, v *validator.Validate, f *Fanout, logger *logrus.Logger) *ChatsUsecase {
	return &ChatsUsecase{
		registry: r,
		validate: v,
		fanout:   f,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateChat creates a chat with the creator as its admin. The creator is
// always a participant, duplicate participant ids are ignored.
func (u *ChatsUsecase) CreateChat(ctx context.Context, create models.ChatCreate) (chat *models.Chat, err error) {
	defer func() { logFailure(u.logger, "create_chat", err, logrus.Fields{"creator_id": create.CreatorID}) }()

	if err = validateStruct(u.validate, create); err != nil {
		return nil, err
	}

	members := dedupe(append([]string{create.CreatorID}, create.ParticipantIDs...))

	if create.Type == models.ChatTypePrivate && len(members) != 2 {
		return nil, fmt.Errorf("%w: private chat must have exactly two participants", ErrBusinessLogicViolation)
	}
	if create.Type != models.ChatTypePrivate && len(members) < 2 {
		return nil, fmt.Errorf("%w: %s chat must have at least two participants", ErrBusinessLogicViolation, create.Type)
	}

	now := u.now()
	chat = &models.Chat{
		ChatID:    uuid.NewString(),
		Type:      create.Type,
		Name:      create.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		if err := store.CreateChat(ctx, chat); err != nil {
			return err
		}

		participants := make([]models.ChatParticipant, len(members))
		for i, member := range members {
			participants[i] = models.ChatParticipant{
				ChatID:   chat.ChatID,
				UserID:   member,
				JoinedAt: now,
				IsAdmin:  member == create.CreatorID,
			}
		}
		if _, err := store.UpsertParticipants(ctx, participants); err != nil {
			return err
		}

		return r.GetUpdatesStore().ChatCreated(&models.ChatCreated{
			UpdateMeta: models.UpdateMeta{
				Timestamp: now,
				Audience:  members,
			},
			ChatID:  chat.ChatID,
			Type:    chat.Type,
			Name:    chat.Name,
			Members: members,
		})
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// loadMutableChat returns nil for chats that are missing or private.
func loadMutableChat(ctx context.Context, store *storage.ChatsStorage, chatID string) (*models.Chat, error) {
	chat, err := store.GetChat(ctx, chatID)
	if errors.Is(err, storage.ErrChatNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if chat.Type == models.ChatTypePrivate {
		return nil, nil
	}
	return chat, nil
}

func participantIDs(participants []models.ChatParticipant, except string) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.UserID != except {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// AddParticipants activates the users in a group or course chat and notifies
// each newly added user. It returns false for missing and private chats.
func (u *ChatsUsecase) AddParticipants(ctx context.Context, chatID string, userIDs []string, actorID string) (ok bool, err error) {
	defer func() { logFailure(u.logger, "add_participants", err, logrus.Fields{"chat_id": chatID}) }()

	ids, err := canonicalIDs(append([]string{chatID, actorID}, userIDs...), "user_ids")
	if err != nil {
		return false, err
	}
	chatID, actorID, userIDs = ids[0], ids[1], dedupe(ids[2:])

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		chat, err := loadMutableChat(ctx, store, chatID)
		if err != nil || chat == nil {
			return err
		}
		ok = true

		active, err := store.GetActiveParticipants(ctx, chatID)
		if err != nil {
			return err
		}
		current := make(map[string]struct{}, len(active))
		for _, p := range active {
			current[p.UserID] = struct{}{}
		}

		now := u.now()
		added := make([]models.ChatParticipant, 0, len(userIDs))
		for _, id := range userIDs {
			if _, exists := current[id]; exists {
				continue
			}
			added = append(added, models.ChatParticipant{ChatID: chatID, UserID: id, JoinedAt: now})
		}
		if len(added) == 0 {
			return nil
		}

		activated, err := store.UpsertParticipants(ctx, added)
		if err != nil {
			return err
		}

		name, err := actorName(ctx, r, actorID)
		if err != nil {
			return err
		}

		drafts := make([]models.NotificationCreate, len(activated))
		for i, id := range activated {
			drafts[i] = addedToChatNotification(chat, id, name)
		}
		if _, err = u.fanout.Notify(ctx, r, now, drafts); err != nil {
			return err
		}

		audience := append(participantIDs(active, ""), activated...)
		for _, id := range activated {
			err = r.GetUpdatesStore().MemberAdded(&models.MemberAdded{
				UpdateMeta: models.UpdateMeta{
					Timestamp: now,
					Audience:  audience,
				},
				ChatID: chatID,
				UserID: id,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// RemoveParticipant makes the user leave a group or course chat. It returns
// false for missing and private chats and for users that are not active participants.
func (u *ChatsUsecase) RemoveParticipant(ctx context.Context, chatID, userID, actorID string) (ok bool, err error) {
	defer func() { logFailure(u.logger, "remove_participant", err, logrus.Fields{"chat_id": chatID}) }()

	ids, err := canonicalIDs([]string{chatID, userID, actorID}, "user_id")
	if err != nil {
		return false, err
	}
	chatID, userID, actorID = ids[0], ids[1], ids[2]

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		chat, err := loadMutableChat(ctx, store, chatID)
		if err != nil || chat == nil {
			return err
		}

		now := u.now()
		ok, err = store.DeactivateParticipant(ctx, chatID, userID, now)
		if err != nil || !ok {
			return err
		}

		name, err := actorName(ctx, r, actorID)
		if err != nil {
			return err
		}
		drafts := []models.NotificationCreate{removedFromChatNotification(chat, userID, name)}
		if _, err = u.fanout.Notify(ctx, r, now, drafts); err != nil {
			return err
		}

		remaining, err := store.GetActiveParticipants(ctx, chatID)
		if err != nil {
			return err
		}
		return r.GetUpdatesStore().MemberRemoved(&models.MemberRemoved{
			UpdateMeta: models.UpdateMeta{
				Timestamp: now,
				Audience:  append(participantIDs(remaining, ""), userID),
			},
			ChatID: chatID,
			UserID: userID,
		})
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// UpdateChatSettings applies the settings to a group or course chat and
// notifies every other active participant.
func (u *ChatsUsecase) UpdateChatSettings(ctx context.Context, chatID string, settings models.ChatSettings, actorID string) (ok bool, err error) {
	defer func() { logFailure(u.logger, "update_chat_settings", err, logrus.Fields{"chat_id": chatID}) }()

	if err = validateStruct(u.validate, settings); err != nil {
		return false, err
	}
	ids, err := canonicalIDs([]string{chatID, actorID}, "chat_id")
	if err != nil {
		return false, err
	}
	chatID, actorID = ids[0], ids[1]

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		chat, err := loadMutableChat(ctx, store, chatID)
		if err != nil || chat == nil {
			return err
		}
		ok = true

		now := u.now()
		if settings.Name != nil {
			if err = store.UpdateChatName(ctx, chatID, *settings.Name, now); err != nil {
				return err
			}
		}

		active, err := store.GetActiveParticipants(ctx, chatID)
		if err != nil {
			return err
		}
		name, err := actorName(ctx, r, actorID)
		if err != nil {
			return err
		}

		recipients := participantIDs(active, actorID)
		drafts := make([]models.NotificationCreate, len(recipients))
		for i, id := range recipients {
			drafts[i] = settingsUpdatedNotification(chat, id, name)
		}
		_, err = u.fanout.Notify(ctx, r, now, drafts)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (u *ChatsUsecase) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	if !ValidateUUID(chatID) {
		return nil, storage.ErrChatNotFound
	}
	return u.registry.GetChatsStore().GetChat(ctx, chatID)
}

// GetChatWithMembers returns the chat with its active participants to one of them.
func (u *ChatsUsecase) GetChatWithMembers(ctx context.Context, chatID, userID string) (c *models.ChatWithMembers, err error) {
	defer func() { logFailure(u.logger, "get_chat", err, logrus.Fields{"chat_id": chatID}) }()

	store := u.registry.GetChatsStore()
	if err = ensureMember(ctx, store, chatID, userID); err != nil {
		return nil, err
	}
	return store.GetChatWithMembers(ctx, chatID)
}

func (u *ChatsUsecase) GetUserChats(ctx context.Context, userID string, chatType *models.ChatType, page models.PageRequest) (p *models.Page[models.Chat], err error) {
	defer func() { logFailure(u.logger, "get_user_chats", err, logrus.Fields{"user_id": userID}) }()

	if chatType != nil && !chatType.Valid() {
		return nil, fmt.Errorf("%w: invalid fields: chat_type (oneof)", ErrValidation)
	}
	return u.registry.GetChatsStore().GetUserChats(ctx, userID, chatType, page)
}

// DeleteChat removes the chat with its whole history. Only active participants may do it.
func (u *ChatsUsecase) DeleteChat(ctx context.Context, chatID, userID string) (err error) {
	defer func() { logFailure(u.logger, "delete_chat", err, logrus.Fields{"chat_id": chatID}) }()

	return u.registry.Atomic(ctx, func(r storage.Registry) error {
		store := r.GetChatsStore()
		if err := ensureMember(ctx, store, chatID, userID); err != nil {
			return err
		}
		return store.DeleteChat(ctx, chatID)
	})
}

func ensureMember(ctx context.Context, store *storage.ChatsStorage, chatID, userID string) error {
	if !ValidateUUID(chatID) || !ValidateUUID(userID) {
		return ErrUserIsNotAChatMember
	}
	isMember, err := store.IsActiveParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrUserIsNotAChatMember
	}
	return nil
}
