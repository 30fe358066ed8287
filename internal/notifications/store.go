package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
)

// Store operations reported in StoreError.Op.
const (
	OpFindUser           = "find_user"
	OpCreateNotification = "create_notification"
	OpAppendRef          = "append_ref"
)

var (
	// ErrUserNotFound means the target of an append does not exist.
	ErrUserNotFound = errors.New("notifications: target user not found")
	// ErrPersistence marks every delivery that failed before a record was durable.
	ErrPersistence = errors.New("notifications: persistence failed")
)

// StoreError wraps a failure from one step of Store.Append.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("notifications store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DeliveryFailedError is returned by Dispatcher.Deliver when the notification
// could not be persisted. The recipient will never see it.
type DeliveryFailedError struct {
	TargetUserID string
	Err          error
}

func (e *DeliveryFailedError) Error() string {
	return fmt.Sprintf("deliver notification to %s: %v", e.TargetUserID, e.Err)
}

func (e *DeliveryFailedError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// ListQuery selects one page of a user's notifications, newest first.
type ListQuery struct {
	UserID     string
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// Store persists notifications and each user's ordered notification history.
type Store interface {
	// Append creates n and appends its id to the target user's history as one
	// logical unit. Failures are *StoreError.
	Append(ctx context.Context, n *models.Notification) error
	// History returns the user's notification ids in append order.
	History(ctx context.Context, userID string) ([]string, error)
	// List returns up to pagination.LimitWithBuffer(q.Limit) rows ordered by
	// (created_at, id) descending.
	List(ctx context.Context, q ListQuery) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// DeleteReadOlderThan removes read notifications created before cutoff
	// along with their history references.
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
