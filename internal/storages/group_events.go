package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	"gorm.io/datatypes"
)

const (
	GroupEventsChatIdForeignKey       = "group_events_chat_id_fkey"
	GroupEventsUserIdForeignKey       = "group_events_user_id_fkey"
	GroupEventsTargetUserIdForeignKey = "group_events_target_user_id_fkey"
)

var groupEventColumns = []string{"event_id", "chat_id", "user_id", "target_user_id", "event_type", "event_data", "event_time"}

type GroupEventsStorage struct {
	db Scope
}

func NewGroupEventsStorage(db Scope) *GroupEventsStorage {
	return &GroupEventsStorage{
		db: db,
	}
}

func (s *GroupEventsStorage) PutEvent(ctx context.Context, event *models.GroupEvent) error {
	data := event.Data
	if data == nil {
		data = datatypes.JSONMap{}
	}

	query, args, err := sq.Insert("group_events").
		Columns(groupEventColumns...).
		Values(event.EventID, event.ChatID, event.UserID, event.TargetUserID, event.Type, data, event.EventTime).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)

	switch GetPgxConstraintName(err) {
	case GroupEventsChatIdForeignKey:
		return ErrChatNotFound
	case GroupEventsUserIdForeignKey, GroupEventsTargetUserIdForeignKey:
		return ErrUserNotFound
	}
	return err
}

func (s *GroupEventsStorage) GetChatEvents(ctx context.Context, chatID string, filter models.GroupEventFilter, page models.PageRequest) (*models.Page[models.GroupEvent], error) {
	cond := sq.Eq{"chat_id": chatID}
	if filter.Type != nil {
		cond["event_type"] = *filter.Type
	}

	base := sq.Select(groupEventColumns...).
		From("group_events").
		Where(cond)

	return selectPage[models.GroupEvent](ctx, s.db, base, page, "event_time DESC", "event_id")
}

// GetUserEvents lists events performed by the user, or the events that
// targeted the user when asTarget is set.
func (s *GroupEventsStorage) GetUserEvents(ctx context.Context, userID string, asTarget bool, filter models.GroupEventFilter, page models.PageRequest) (*models.Page[models.GroupEvent], error) {
	cond := sq.Eq{"user_id": userID}
	if asTarget {
		cond = sq.Eq{"target_user_id": userID}
	}
	if filter.Type != nil {
		cond["event_type"] = *filter.Type
	}

	base := sq.Select(groupEventColumns...).
		From("group_events").
		Where(cond)

	return selectPage[models.GroupEvent](ctx, s.db, base, page, "event_time DESC", "event_id")
}

// GetEventStats counts events per type, overall and since the given moment.
// A nil chatID counts across all chats.
func (s *GroupEventsStorage) GetEventStats(ctx context.Context, chatID *string, since time.Time) (map[models.EventType]models.EventStats, error) {
	builder := sq.Select("event_type", "count(*) AS total").
		Column(sq.Expr("count(*) FILTER (WHERE event_time >= ?) AS last_24h", since)).
		From("group_events").
		GroupBy("event_type")

	if chatID != nil {
		builder = builder.Where(sq.Eq{"chat_id": *chatID})
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows := make([]struct {
		Type models.EventType `db:"event_type"`
		models.EventStats
	}, 0)
	if err = s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	stats := make(map[models.EventType]models.EventStats, len(models.EventTypes))
	for _, t := range models.EventTypes {
		stats[t] = models.EventStats{}
	}
	for _, row := range rows {
		stats[row.Type] = row.EventStats
	}
	return stats, nil
}
