package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	"gorm.io/datatypes"
)

const NotificationsUserIdForeignKey = "notifications_user_id_fkey"

var notificationColumns = []string{
	"notification_id", "user_id", "chat_id", "message_id", "notification_type", "title", "content", "data",
	"priority", "seen", "seen_at", "read", "read_at", "created_at", "updated_at", "expires_at",
}

type NotificationsStorage struct {
	db        Scope
	chunkSize int
}

func NewNotificationsStorage(db Scope, chunkSize int) *NotificationsStorage {
	return &NotificationsStorage{
		db:        db,
		chunkSize: chunkSize,
	}
}

// PutNotifications inserts the notifications in chunks. All chunks share the
// caller's transaction, if any.
func (s *NotificationsStorage) PutNotifications(ctx context.Context, notifications []models.Notification) error {
	for _, chunk := range chunks(notifications, s.chunkSize) {
		builder := sq.Insert("notifications").
			Columns(notificationColumns...).
			PlaceholderFormat(sq.Dollar)

		for _, n := range chunk {
			data := n.Data
			if data == nil {
				data = datatypes.JSONMap{}
			}
			builder = builder.Values(
				n.NotificationID, n.UserID, n.ChatID, n.MessageID, n.Type, n.Title, n.Content, data,
				n.Priority, n.Seen, n.SeenAt, n.Read, n.ReadAt, n.CreatedAt, n.UpdatedAt, n.ExpiresAt,
			)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return err
		}

		_, err = s.db.ExecContext(ctx, query, args...)
		if GetPgxConstraintName(err) == NotificationsUserIdForeignKey {
			return ErrUserNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// MarkAsSeen moves the user's unseen notifications to seen and returns how many moved.
func (s *NotificationsStorage) MarkAsSeen(ctx context.Context, ids []string, userID string, at time.Time) (int64, error) {
	return s.transition(ctx, ids, userID, "seen", map[string]interface{}{
		"seen":       true,
		"seen_at":    at,
		"updated_at": at,
	})
}

// MarkAsRead moves the user's unread notifications to read. Notifications
// that were never seen become seen too, already seen ones keep their seen_at.
func (s *NotificationsStorage) MarkAsRead(ctx context.Context, ids []string, userID string, at time.Time) (int64, error) {
	return s.transition(ctx, ids, userID, "read", map[string]interface{}{
		"read":       true,
		"read_at":    at,
		"seen":       true,
		"seen_at":    sq.Expr("COALESCE(seen_at, ?)", at),
		"updated_at": at,
	})
}

func (s *NotificationsStorage) transition(ctx context.Context, ids []string, userID, flag string, values map[string]interface{}) (int64, error) {
	var total int64
	for _, chunk := range chunks(ids, s.chunkSize) {
		query, args, err := sq.Update("notifications").
			SetMap(values).
			Where(sq.Eq{
				"notification_id": chunk,
				"user_id":         userID,
				flag:              false,
			}).
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

func notExpired(now time.Time) sq.Sqlizer {
	return sq.Or{
		sq.Eq{"expires_at": nil},
		sq.Gt{"expires_at": now},
	}
}

func (s *NotificationsStorage) GetUnreadCount(ctx context.Context, userID string, notificationType *models.NotificationType, now time.Time) (uint64, error) {
	cond := sq.Eq{
		"user_id": userID,
		"read":    false,
	}
	if notificationType != nil {
		cond["notification_type"] = *notificationType
	}

	query, args, err := sq.Select("count(*)").
		From("notifications").
		Where(cond).
		Where(notExpired(now)).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return 0, err
	}

	var count uint64
	err = s.db.GetContext(ctx, &count, query, args...)
	return count, err
}

// GetUserNotifications lists the user's notifications that have not expired,
// most important and newest first.
func (s *NotificationsStorage) GetUserNotifications(ctx context.Context, userID string, filter models.NotificationFilter, page models.PageRequest, now time.Time) (*models.Page[models.Notification], error) {
	cond := sq.Eq{"user_id": userID}
	if filter.UnreadOnly {
		cond["read"] = false
	}
	if filter.Type != nil {
		cond["notification_type"] = *filter.Type
	}

	base := sq.Select(notificationColumns...).
		From("notifications").
		Where(cond).
		Where(notExpired(now))

	return selectPage[models.Notification](ctx, s.db, base, page, "priority DESC", "created_at DESC", "notification_id")
}

// DeleteExpired hard-deletes every notification whose expires_at is not after now.
func (s *NotificationsStorage) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := sq.Delete("notifications").
		Where(sq.LtOrEq{"expires_at": now}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return 0, err
	}

	return rowsAffected(s.db.ExecContext(ctx, query, args...))
}

// GetStats counts the user's notifications per type. Types without
// notifications are reported with zero counters.
func (s *NotificationsStorage) GetStats(ctx context.Context, userID string) (map[models.NotificationType]models.NotificationStats, error) {
	query, args, err := sq.Select(
		"notification_type",
		"count(*) AS total",
		"count(*) FILTER (WHERE NOT read) AS unread",
		"count(*) FILTER (WHERE NOT seen) AS unseen",
	).
		From("notifications").
		Where(sq.Eq{"user_id": userID}).
		GroupBy("notification_type").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	rows := make([]struct {
		Type models.NotificationType `db:"notification_type"`
		models.NotificationStats
	}, 0)
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	stats := make(map[models.NotificationType]models.NotificationStats, len(models.NotificationTypes))
	for _, t := range models.NotificationTypes {
		stats[t] = models.NotificationStats{}
	}
	for _, row := range rows {
		stats[row.Type] = row.NotificationStats
	}
	return stats, nil
}
