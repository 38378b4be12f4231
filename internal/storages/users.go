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
	ErrUserNotFound      = errors.New("user with provided user_id does not exist")
	ErrUserAlreadyExists = errors.New("user with provided id, email or phone number already exists")
)

const (
	UsersPrimaryKey     = "users_pkey"
	UsersEmailKey       = "users_email_key"
	UsersPhoneNumberKey = "users_phone_number_key"
)

var userColumns = []string{"user_id", "first_name", "last_name", "email", "phone_number", "status", "last_seen", "created_at"}

type UsersStorage struct {
	db    Scope
	cache invalidator
}

func NewUsersStorage(db Scope, cache invalidator) *UsersStorage {
	return &UsersStorage{
		db:    db,
		cache: cache,
	}
}

func (s *UsersStorage) CreateUser(ctx context.Context, user *models.User) error {
	query, args, err := sq.Insert("users").
		Columns(userColumns...).
		Values(user.UserID, user.FirstName, user.LastName, user.Email, user.PhoneNumber, user.Status, user.LastSeen, user.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch GetPgxConstraintName(err) {
	case UsersPrimaryKey, UsersEmailKey, UsersPhoneNumberKey:
		return ErrUserAlreadyExists
	}
	if err != nil {
		return err
	}
	return s.cache.invalidate(ctx, userCacheKey(user.UserID))
}

func (s *UsersStorage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return readThrough(ctx, s.cache, userCacheKey(userID), func() (*models.User, error) {
		query, args, err := sq.Select(userColumns...).
			From("users").
			Where(sq.Eq{"user_id": userID}).
			PlaceholderFormat(sq.Dollar).
			ToSql()

		if err != nil {
			return nil, err
		}

		user := models.User{}
		err = s.db.GetContext(ctx, &user, query, args...)

		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		} else if err != nil {
			return nil, err
		}
		return &user, nil
	})
}

func (s *UsersStorage) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	query, args, err := sq.Update("users").
		Set("last_seen", at).
		Where(sq.Eq{"user_id": userID}).
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
		return ErrUserNotFound
	}
	return s.cache.invalidate(ctx, userCacheKey(userID))
}
