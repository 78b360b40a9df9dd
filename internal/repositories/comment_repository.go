package repositories

import (
	"context"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItemID(ctx context.Context, itemID string, offset, limit int) ([]models.Comment, int64, error)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment in PostgreSQL
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetCommentsByItemID returns one page of an item's comments, newest first, and the total count
func (r *PostgresCommentRepository) GetCommentsByItemID(ctx context.Context, itemID string, offset, limit int) ([]models.Comment, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("item_id = ?", itemID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	comments := []models.Comment{}
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	return comments, total, err
}
