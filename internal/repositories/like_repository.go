package repositories

import (
	"context"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, userID uint, itemID string) (bool, error)
	HasUserLikedItem(ctx context.Context, userID uint, itemID string) (bool, error)
	GetLikedItemIDs(ctx context.Context, userID uint) ([]string, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike inserts a like; a second like by the same user returns ErrDuplicate
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return translate(r.db.WithContext(ctx).Create(like).Error)
}

// DeleteLike removes a like and reports whether a row existed
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, userID uint, itemID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasUserLikedItem checks if a user has liked a specific item
func (r *PostgresLikeRepository) HasUserLikedItem(ctx context.Context, userID uint, itemID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ? AND item_id = ?", userID, itemID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetLikedItemIDs returns the items a user liked, most recent like first
func (r *PostgresLikeRepository) GetLikedItemIDs(ctx context.Context, userID uint) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Pluck("item_id", &ids).Error
	return ids, err
}
