package comments

import (
	"context"
	"errors"

	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("comments: not found")

// Repository persists comments. Thread reads go level by level so callers can
// bound how much of a tree they load.
type Repository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	// ListTopLevel returns up to limit comments on postID that reply to nothing.
	ListTopLevel(ctx context.Context, postID string, limit int) ([]models.Comment, error)
	// ListReplies returns up to limit direct replies to any of parentIDs.
	ListReplies(ctx context.Context, parentIDs []string, limit int) ([]models.Comment, error)
}

type SQLRepository struct {
	db *gorm.DB
}

func NewSQLRepository(conn *gorm.DB) *SQLRepository {
	return &SQLRepository{db: conn}
}

func (r *SQLRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

func (r *SQLRepository) ListTopLevel(ctx context.Context, postID string, limit int) ([]models.Comment, error) {
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *SQLRepository) ListReplies(ctx context.Context, parentIDs []string, limit int) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Where("parent_comment_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
