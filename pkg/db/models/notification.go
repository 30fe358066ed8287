package models

import (
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/enums"
)

// Notification is a persisted, user-facing event about a post or comment.
type Notification struct {
	ID               string                 `gorm:"primaryKey" bson:"_id" json:"id"`
	TargetUserID     string                 `gorm:"column:target_user_id;not null;index:idx_notifications_target_created,priority:1" bson:"targetUserId" json:"targetUserId"`
	Kind             enums.NotificationKind `gorm:"column:kind;not null" bson:"kind" json:"kind"`
	Message          string                 `gorm:"column:message;not null" bson:"message" json:"message"`
	RelatedPostID    string                 `gorm:"column:related_post_id;not null" bson:"relatedPostId" json:"relatedPostId"`
	RelatedCommentID *string                `gorm:"column:related_comment_id" bson:"relatedCommentId,omitempty" json:"relatedCommentId,omitempty"`
	ActorUserID      string                 `gorm:"column:actor_user_id;not null" bson:"actorUserId" json:"actorUserId"`
	CreatedAt        time.Time              `gorm:"column:created_at;not null;index:idx_notifications_target_created,priority:2" bson:"createdAt" json:"createdAt"`
	Read             bool                   `gorm:"column:is_read;not null;default:false" bson:"read" json:"read"`
}

// NotificationRef is one entry in a user's ordered notification history.
// Seq preserves append order.
type NotificationRef struct {
	Seq            int64     `gorm:"primaryKey;autoIncrement"`
	UserID         string    `gorm:"column:user_id;not null;index"`
	NotificationID string    `gorm:"column:notification_id;not null;uniqueIndex"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (NotificationRef) TableName() string { return "user_notification_refs" }
