package posts

import (
	"context"
	"errors"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/enums"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("posts: not found")

// Repository persists posts and their likes.
type Repository interface {
	Create(ctx context.Context, post *models.Post) error
	// FindByID loads the post with Likes populated.
	FindByID(ctx context.Context, id string) (*models.Post, error)
	// ToggleLike adds userID's like when absent and removes it when present.
	// It reports whether the post is liked afterwards.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)
	// List returns up to LimitWithBuffer(q.Limit) posts, newest first.
	List(ctx context.Context, q FeedQuery) ([]models.Post, error)
}

// FeedQuery selects one page of the post feed.
type FeedQuery struct {
	Type   *enums.PostType
	Limit  int
	Cursor *pagination.Cursor
}

type SQLRepository struct {
	db *gorm.DB
}

func NewSQLRepository(conn *gorm.DB) *SQLRepository {
	return &SQLRepository{db: conn}
}

func (r *SQLRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	likes := []string{}
	if err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("post_id = ?", id).
		Order("created_at ASC").
		Pluck("user_id", &likes).Error; err != nil {
		return nil, err
	}
	post.Likes = likes
	return &post, nil
}

func (r *SQLRepository) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return ErrNotFound
		}

		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: userID}).Error
	})
	return liked, err
}

func (r *SQLRepository) List(ctx context.Context, q FeedQuery) ([]models.Post, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})
	if q.Type != nil {
		query = query.Where("type = ?", *q.Type)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []models.Post
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		rows[i].Likes = []string{}
	}
	var likes []models.PostLike
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("created_at ASC").
		Find(&likes).Error; err != nil {
		return nil, err
	}
	index := make(map[string]int, len(rows))
	for i := range rows {
		index[rows[i].ID] = i
	}
	for _, like := range likes {
		if i, ok := index[like.PostID]; ok {
			rows[i].Likes = append(rows[i].Likes, like.UserID)
		}
	}
	return rows, nil
}
