package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/db"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
	"gorm.io/gorm"
)

// SQLStore keeps notifications in postgres (or sqlite). The history lives in
// user_notification_refs; Append writes both rows in one transaction.
type SQLStore struct {
	db *db.Client
}

func NewSQLStore(client *db.Client) *SQLStore {
	return &SQLStore{db: client}
}

func (s *SQLStore) Append(ctx context.Context, n *models.Notification) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var users int64
		if err := tx.Model(&models.User{}).Where("id = ?", n.TargetUserID).Count(&users).Error; err != nil {
			return &StoreError{Op: OpFindUser, Err: err}
		}
		if users == 0 {
			return &StoreError{Op: OpFindUser, Err: ErrUserNotFound}
		}
		if err := tx.Create(n).Error; err != nil {
			return &StoreError{Op: OpCreateNotification, Err: err}
		}
		ref := models.NotificationRef{UserID: n.TargetUserID, NotificationID: n.ID}
		if err := tx.Create(&ref).Error; err != nil {
			return &StoreError{Op: OpAppendRef, Err: err}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	// begin or commit failed; nothing is durable.
	return &StoreError{Op: OpCreateNotification, Err: err}
}

func (s *SQLStore) History(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.DB().WithContext(ctx).
		Model(&models.NotificationRef{}).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Pluck("notification_id", &ids).Error
	return ids, err
}

func (s *SQLStore) List(ctx context.Context, q ListQuery) ([]models.Notification, error) {
	query := s.db.DB().WithContext(ctx).Model(&models.Notification{}).Where("target_user_id = ?", q.UserID)
	if q.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQLStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.DB().WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *SQLStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := s.db.DB().WithContext(ctx).
		Model(&models.Notification{}).
		Where("target_user_id = ? AND is_read = ?", userID, false).
		UpdateColumn("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *SQLStore) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Notification{}).
			Where("is_read = ? AND created_at < ?", true, cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("notification_id IN ?", ids).Delete(&models.NotificationRef{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.Notification{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
