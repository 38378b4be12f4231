package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
	storage "github.com/practice-sem-2/campus-chat-service/internal/storages"
	"github.com/sirupsen/logrus"
)

type NotificationsUsecase struct {
	registry storage.Registry
	validate *validator.Validate
	fanout   *Fanout
	logger   *logrus.Logger
	now      func() time.Time
}

func NewNotificationsUsecase(r storage.Registry, v *validator.Validate, f *Fanout, logger *logrus.Logger) *NotificationsUsecase {
	return &NotificationsUsecase{
		registry: r,
		validate: v,
		fanout:   f,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *NotificationsUsecase) Create(ctx context.Context, create models.NotificationCreate) (n *models.Notification, err error) {
	defer func() { logFailure(u.logger, "create_notification", err, logrus.Fields{"user_id": create.UserID}) }()

	if err = validateStruct(u.validate, create); err != nil {
		return nil, err
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		created, err := u.fanout.Notify(ctx, r, u.now(), []models.NotificationCreate{create})
		if err != nil {
			return err
		}
		n = &created[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateBulk sends the same notification to every listed user in one unit of work.
func (u *NotificationsUsecase) CreateBulk(ctx context.Context, userIDs []string, template models.NotificationCreate) (created []models.Notification, err error) {
	defer func() { logFailure(u.logger, "create_notifications", err, logrus.Fields{"recipients": len(userIDs)}) }()

	if userIDs, err = canonicalIDs(userIDs, "user_ids"); err != nil {
		return nil, err
	}
	if userIDs = dedupe(userIDs); len(userIDs) == 0 {
		return nil, fmt.Errorf("%w: invalid fields: user_ids (required)", ErrValidation)
	}

	drafts := make([]models.NotificationCreate, len(userIDs))
	for i, id := range userIDs {
		drafts[i] = template
		drafts[i].UserID = id
		if err = validateStruct(u.validate, drafts[i]); err != nil {
			return nil, err
		}
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		created, err = u.fanout.Notify(ctx, r, u.now(), drafts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// MarkAsSeen marks the user's unseen notifications as seen.
func (u *NotificationsUsecase) MarkAsSeen(ctx context.Context, ids []string, userID string) (count int64, err error) {
	defer func() { logFailure(u.logger, "mark_notifications_seen", err, logrus.Fields{"user_id": userID}) }()

	if ids, err = canonicalIDs(ids, "notification_ids"); err != nil {
		return 0, err
	}
	if ids = dedupe(ids); len(ids) == 0 {
		return 0, nil
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		count, err = r.GetNotificationsStore().MarkAsSeen(ctx, ids, userID, u.now())
		return err
	})
	return count, err
}

// MarkAsRead marks the user's unread notifications as read and seen.
func (u *NotificationsUsecase) MarkAsRead(ctx context.Context, ids []string, userID string) (count int64, err error) {
	defer func() { logFailure(u.logger, "mark_notifications_read", err, logrus.Fields{"user_id": userID}) }()

	if ids, err = canonicalIDs(ids, "notification_ids"); err != nil {
		return 0, err
	}
	if ids = dedupe(ids); len(ids) == 0 {
		return 0, nil
	}

	err = u.registry.Atomic(ctx, func(r storage.Registry) error {
		count, err = r.GetNotificationsStore().MarkAsRead(ctx, ids, userID, u.now())
		return err
	})
	return count, err
}

func validNotificationType(t *models.NotificationType) bool {
	if t == nil {
		return true
	}
	for _, known := range models.NotificationTypes {
		if *t == known {
			return true
		}
	}
	return false
}

func (u *NotificationsUsecase) GetUnreadCount(ctx context.Context, userID string, notificationType *models.NotificationType) (count uint64, err error) {
	defer func() { logFailure(u.logger, "get_unread_notifications", err, logrus.Fields{"user_id": userID}) }()

	if !validNotificationType(notificationType) {
		return 0, fmt.Errorf("%w: invalid fields: type (oneof)", ErrValidation)
	}
	return u.registry.GetNotificationsStore().GetUnreadCount(ctx, userID, notificationType, u.now())
}

func (u *NotificationsUsecase) GetUserNotifications(ctx context.Context, userID string, filter models.NotificationFilter, page models.PageRequest) (p *models.Page[models.Notification], err error) {
	defer func() { logFailure(u.logger, "get_notifications", err, logrus.Fields{"user_id": userID}) }()

	if !validNotificationType(filter.Type) {
		return nil, fmt.Errorf("%w: invalid fields: type (oneof)", ErrValidation)
	}
	return u.registry.GetNotificationsStore().GetUserNotifications(ctx, userID, filter, page, u.now())
}

func (u *NotificationsUsecase) GetStats(ctx context.Context, userID string) (stats map[models.NotificationType]models.NotificationStats, err error) {
	defer func() { logFailure(u.logger, "get_notification_stats", err, logrus.Fields{"user_id": userID}) }()

	return u.registry.GetNotificationsStore().GetStats(ctx, userID)
}

// DeleteExpired removes every notification past its expiry.
func (u *NotificationsUsecase) DeleteExpired(ctx context.Context) (count int64, err error) {
	defer func() { logFailure(u.logger, "delete_expired_notifications", err, nil) }()

	return u.registry.GetNotificationsStore().DeleteExpired(ctx, u.now())
}

// RunSweeper deletes expired notifications every interval until ctx is done.
func (u *NotificationsUsecase) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		u.logger.Info("expired notifications sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := u.DeleteExpired(ctx)
			if err != nil {
				continue
			}
			u.logger.
				WithField("deleted", count).
				Debug("expired notifications swept")
		}
	}
}
