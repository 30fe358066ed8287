package models

import (
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/enums"
)

// Post is a blog entry or a question.
type Post struct {
	ID        string         `gorm:"primaryKey" bson:"_id" json:"id"`
	Type      enums.PostType `gorm:"column:type;not null" bson:"type" json:"type"`
	Title     string         `gorm:"column:title;not null" bson:"title" json:"title"`
	Content   string         `gorm:"column:content;not null" bson:"content" json:"content"`
	AuthorID  string         `gorm:"column:author_id;not null;index" bson:"author" json:"authorId"`
	Likes     []string       `gorm:"-" bson:"likes" json:"likes"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" bson:"createdAt" json:"createdAt"`
}

// PostLike is one user's like on a post.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;column:post_id"`
	UserID    string    `gorm:"primaryKey;column:user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PostLike) TableName() string { return "post_likes" }
