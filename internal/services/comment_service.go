package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
)

const (
	commentsPerPage        = 10
	notificationPreviewLen = 30
)

// CommentService handles item comments and the owner notifications they raise
type CommentService struct {
	comments      repositories.CommentRepository
	items         repositories.ItemRepository
	profiles      repositories.ProfileRepository
	notifications repositories.NotificationRepository
	feed          realtime.Feed
	cache         *querycache.Cache
}

func NewCommentService(
	comments repositories.CommentRepository,
	items repositories.ItemRepository,
	profiles repositories.ProfileRepository,
	notifications repositories.NotificationRepository,
	feed realtime.Feed,
	cache *querycache.Cache,
) *CommentService {
	return &CommentService{
		comments:      comments,
		items:         items,
		profiles:      profiles,
		notifications: notifications,
		feed:          feed,
		cache:         cache,
	}
}

// List returns one page of an item's comments, newest first. Pages start at 1.
func (s *CommentService) List(ctx context.Context, itemID string, page int) (*models.CommentPage, error) {
	if page < 1 {
		page = 1
	}
	return querycache.Fetch(ctx, s.cache, querycache.NewKey("comments", itemID, page), func(ctx context.Context) (*models.CommentPage, error) {
		item, err := s.items.GetItemByID(ctx, itemID)
		if err != nil {
			return nil, lookupError("item", err)
		}
		comments, total, err := s.comments.GetCommentsByItemID(ctx, itemID, (page-1)*commentsPerPage, commentsPerPage)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}

		authorIDs := make([]uint, len(comments))
		for i, c := range comments {
			authorIDs[i] = c.UserID
		}
		profiles, err := s.profiles.GetProfilesByIDs(ctx, authorIDs)
		if err != nil {
			return nil, fmt.Errorf("load comment authors: %w", err)
		}
		byID := make(map[uint]models.ProfileCompact, len(profiles))
		for i := range profiles {
			byID[profiles[i].ID] = profiles[i].ToCompact()
		}

		out := &models.CommentPage{
			Comments: make([]models.CommentWithProfile, len(comments)),
			Page:     page,
			Total:    total,
			HasMore:  int64(page*commentsPerPage) < total,
		}
		for i, c := range comments {
			profile, ok := byID[c.UserID]
			if !ok {
				profile = models.ProfileCompact{ID: c.UserID}
			}
			out.Comments[i] = models.CommentWithProfile{Comment: c, Profile: profile, IsAuthor: c.UserID == item.UserID}
		}
		return out, nil
	})
}

// Create adds the viewer's comment, bumps the item's counter and notifies the
// owner when someone else commented
func (s *CommentService) Create(ctx context.Context, itemID string, viewerID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("comment content is empty")
	}
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, lookupError("item", err)
	}

	comment := &models.Comment{ItemID: itemID, UserID: viewerID, Content: content}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	invalidate(ctx, s.cache, commentsKey(itemID))
	publish(ctx, s.feed, comment.TableName(), realtime.Insert, comment, nil)

	if _, err := s.items.AdjustComments(ctx, itemID, 1); err != nil {
		return nil, fmt.Errorf("update comment count: %w", err)
	}
	invalidate(ctx, s.cache, itemKey(itemID), itemsKey())

	if item.UserID != viewerID {
		n := &models.Notification{
			UserID:    item.UserID,
			ItemID:    itemID,
			CommentID: comment.ID,
			Message:   notificationMessage(content),
		}
		if err := s.notifications.CreateNotification(ctx, n); err != nil {
			// The comment stands; the owner still sees it on the item
			logger.Error().Err(err).Str("item_id", itemID).Uint("comment_id", comment.ID).Msg("comment notification not created")
		} else {
			publish(ctx, s.feed, n.TableName(), realtime.Insert, n, nil)
		}
	}
	return comment, nil
}

func notificationMessage(content string) string {
	runes := []rune(content)
	if len(runes) > notificationPreviewLen {
		return "새로운 댓글이 달렸습니다: " + string(runes[:notificationPreviewLen]) + "..."
	}
	return "새로운 댓글이 달렸습니다: " + content
}
