package models

import (
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/enums"
)

// User represents an account. NotificationIDs mirrors the ordered history kept
// on the user document in mongo; the sql backend keeps it in user_notification_refs.
type User struct {
	ID              string         `gorm:"primaryKey" bson:"_id" json:"id"`
	Name            string         `gorm:"column:name;not null" bson:"name" json:"name"`
	Email           string         `gorm:"column:email;not null;uniqueIndex" bson:"email" json:"email"`
	PasswordHash    string         `gorm:"column:password_hash;not null" bson:"passwordHash" json:"-"`
	College         *string        `gorm:"column:college" bson:"college,omitempty" json:"college,omitempty"`
	Company         *string        `gorm:"column:company" bson:"company,omitempty" json:"company,omitempty"`
	LinkedIn        *string        `gorm:"column:linkedin" bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Role            enums.UserRole `gorm:"column:role;not null;default:member" bson:"role" json:"role"`
	ProfilePicture  *string        `gorm:"column:profile_picture" bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	NotificationIDs []string       `gorm:"-" bson:"notifications" json:"-"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}
