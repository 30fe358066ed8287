package models

import "time"

// Comment belongs to a post and optionally replies to another comment on the same post.
type Comment struct {
	ID              string    `gorm:"primaryKey" bson:"_id" json:"id"`
	PostID          string    `gorm:"column:post_id;not null;index" bson:"post" json:"postId"`
	ParentCommentID *string   `gorm:"column:parent_comment_id;index" bson:"parentComment,omitempty" json:"parentCommentId,omitempty"`
	AuthorID        string    `gorm:"column:author_id;not null" bson:"author" json:"authorId"`
	Text            string    `gorm:"column:text;not null" bson:"text" json:"text"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" bson:"createdAt" json:"createdAt"`
}
