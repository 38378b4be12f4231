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
	ErrChatAlreadyExists = errors.New("chat with provided chat_id already exists")
	ErrChatNotFound      = errors.New("chat with provided chat_id does not exist")
	ErrEmptyMembers      = errors.New("members array can't be empty")
)

const (
	ChatsPrimaryKey                  = "chats_pkey"
	ChatParticipantsChatIdForeignKey = "chat_participants_chat_id_fkey"
	ChatParticipantsUserIdForeignKey = "chat_participants_user_id_fkey"
)

var chatColumns = []string{"chat_id", "chat_type", "chat_name", "created_at", "updated_at", "last_message_at"}

type ChatsStorage struct {
	db    Scope
	cache invalidator
}

func NewChatsStorage(db Scope, cache invalidator) *ChatsStorage {
	return &ChatsStorage{
		db:    db,
		cache: cache,
	}
}

func (s *ChatsStorage) CreateChat(ctx context.Context, chat *models.Chat) error {
	query, args, err := sq.Insert("chats").
		Columns(chatColumns...).
		Values(chat.ChatID, chat.Type, chat.Name, chat.CreatedAt, chat.UpdatedAt, chat.LastMessageAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	if GetPgxConstraintName(err) == ChatsPrimaryKey {
		return ErrChatAlreadyExists
	}
	return err
}

// UpsertParticipants inserts the participants or re-activates the ones who
// left earlier. Rows that are already active are left untouched. It returns
// the ids of the users that became active.
func (s *ChatsStorage) UpsertParticipants(ctx context.Context, participants []models.ChatParticipant) ([]string, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyMembers
	}

	builder := sq.Insert("chat_participants").
		Columns("chat_id", "user_id", "joined_at", "left_at", "is_admin").
		Suffix(`ON CONFLICT (chat_id, user_id) DO UPDATE
			SET left_at = NULL, joined_at = EXCLUDED.joined_at, is_admin = EXCLUDED.is_admin
			WHERE chat_participants.left_at IS NOT NULL
			RETURNING user_id`).
		PlaceholderFormat(sq.Dollar)

	for _, p := range participants {
		builder = builder.Values(p.ChatID, p.UserID, p.JoinedAt, nil, p.IsAdmin)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	activated := make([]string, 0, len(participants))
	err = s.db.SelectContext(ctx, &activated, query, args...)

	switch GetPgxConstraintName(err) {
	case ChatParticipantsChatIdForeignKey:
		return nil, ErrChatNotFound
	case ChatParticipantsUserIdForeignKey:
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return activated, nil
}

// DeactivateParticipant sets left_at for an active participant.
// It reports false when there was no active row.
func (s *ChatsStorage) DeactivateParticipant(ctx context.Context, chatID, userID string, at time.Time) (bool, error) {
	query, args, err := sq.Update("chat_participants").
		Set("left_at", at).
		Where(sq.Eq{
			"chat_id": chatID,
			"user_id": userID,
			"left_at": nil,
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

func (s *ChatsStorage) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	return readThrough(ctx, s.cache, chatCacheKey(chatID), func() (*models.Chat, error) {
		query, args, err := sq.Select(chatColumns...).
			From("chats").
			Where(sq.Eq{"chat_id": chatID}).
			PlaceholderFormat(sq.Dollar).
			ToSql()

		if err != nil {
			return nil, err
		}

		chat := models.Chat{}
		err = s.db.GetContext(ctx, &chat, query, args...)

		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		} else if err != nil {
			return nil, err
		}
		return &chat, nil
	})
}

func (s *ChatsStorage) GetActiveParticipants(ctx context.Context, chatID string) ([]models.ChatParticipant, error) {
	query, args, err := sq.Select("chat_id", "user_id", "joined_at", "left_at", "is_admin").
		From("chat_participants").
		Where(sq.Eq{
			"chat_id": chatID,
			"left_at": nil,
		}).
		OrderBy("joined_at", "user_id").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	participants := make([]models.ChatParticipant, 0)
	if err = s.db.SelectContext(ctx, &participants, query, args...); err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *ChatsStorage) GetChatWithMembers(ctx context.Context, chatID string) (*models.ChatWithMembers, error) {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	members, err := s.GetActiveParticipants(ctx, chatID)
	if err != nil {
		return nil, err
	}

	return &models.ChatWithMembers{
		Chat:    *chat,
		Members: members,
	}, nil
}

func (s *ChatsStorage) IsActiveParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	query, args, err := sq.Select("1").
		Prefix("SELECT EXISTS (").
		From("chat_participants").
		Where(sq.Eq{
			"chat_id": chatID,
			"user_id": userID,
			"left_at": nil,
		}).
		Suffix(")").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return false, err
	}

	ok := false
	err = s.db.GetContext(ctx, &ok, query, args...)
	return ok, err
}

func (s *ChatsStorage) UpdateChatName(ctx context.Context, chatID, name string, at time.Time) error {
	return s.update(ctx, chatID, map[string]interface{}{
		"chat_name":  name,
		"updated_at": at,
	})
}

func (s *ChatsStorage) TouchLastMessage(ctx context.Context, chatID string, at time.Time) error {
	return s.update(ctx, chatID, map[string]interface{}{
		"last_message_at": at,
	})
}

func (s *ChatsStorage) update(ctx context.Context, chatID string, values map[string]interface{}) error {
	query, args, err := sq.Update("chats").
		SetMap(values).
		Where(sq.Eq{"chat_id": chatID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	count, err := rowsAffected(s.db.ExecContext(ctx, query, args...))
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return s.cache.invalidate(ctx, chatCacheKey(chatID))
}

// DeleteChat removes the chat. Participants, messages, read statuses and
// group events go with it.
func (s *ChatsStorage) DeleteChat(ctx context.Context, chatID string) error {
	query, args, err := sq.Delete("chats").
		Where(sq.Eq{"chat_id": chatID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	count, err := rowsAffected(s.db.ExecContext(ctx, query, args...))
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return s.cache.invalidate(ctx, chatCacheKey(chatID))
}

// GetUserChats lists the chats the user actively participates in, most
// recently active first.
func (s *ChatsStorage) GetUserChats(ctx context.Context, userID string, chatType *models.ChatType, page models.PageRequest) (*models.Page[models.Chat], error) {
	cond := sq.Eq{
		"p.user_id": userID,
		"p.left_at": nil,
	}
	if chatType != nil {
		cond["c.chat_type"] = *chatType
	}

	base := sq.Select("c.chat_id", "c.chat_type", "c.chat_name", "c.created_at", "c.updated_at", "c.last_message_at").
		From("chats c").
		Join("chat_participants p ON p.chat_id = c.chat_id").
		Where(cond)

	return selectPage[models.Chat](ctx, s.db, base, page, "last_message_at DESC NULLS LAST", "created_at DESC")
}
