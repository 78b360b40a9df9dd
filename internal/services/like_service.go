package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
)

// LikeService toggles a viewer's like on an item and keeps the item's counter in step
type LikeService struct {
	likes repositories.LikeRepository
	items repositories.ItemRepository
	feed  realtime.Feed
	cache *querycache.Cache
}

func NewLikeService(likes repositories.LikeRepository, items repositories.ItemRepository, feed realtime.Feed, cache *querycache.Cache) *LikeService {
	return &LikeService{likes: likes, items: items, feed: feed, cache: cache}
}

// Status reports whether the viewer likes the item and its like count
func (s *LikeService) Status(ctx context.Context, itemID string, viewerID uint) (*models.LikeStatus, error) {
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, lookupError("item", err)
	}
	status := &models.LikeStatus{ItemID: itemID, Likes: item.Likes}
	if viewerID == 0 {
		return status, nil
	}
	if status.Liked, err = s.likes.HasUserLikedItem(ctx, viewerID, itemID); err != nil {
		return nil, fmt.Errorf("check like: %w", err)
	}
	return status, nil
}

// Toggle likes the item when the viewer has not, and unlikes it otherwise.
//
// The like row and the counter live in different stores. When the counter
// update fails the row change stands and the error is returned; the counter
// stays off by one until the next toggle.
func (s *LikeService) Toggle(ctx context.Context, itemID string, viewerID uint) (*models.LikeStatus, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	item, err := s.items.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, lookupError("item", err)
	}

	liked, err := s.likes.HasUserLikedItem(ctx, viewerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("check like: %w", err)
	}

	like := models.Like{UserID: viewerID, ItemID: itemID}
	delta := 1
	if liked {
		delta = -1
		removed, err := s.likes.DeleteLike(ctx, viewerID, itemID)
		if err != nil {
			return nil, fmt.Errorf("delete like: %w", err)
		}
		if !removed {
			// A concurrent toggle by the same viewer already removed it
			return &models.LikeStatus{ItemID: itemID, Liked: false, Likes: item.Likes}, nil
		}
	} else {
		err := s.likes.CreateLike(ctx, &like)
		if errors.Is(err, repositories.ErrDuplicate) {
			return &models.LikeStatus{ItemID: itemID, Liked: true, Likes: item.Likes}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("create like: %w", err)
		}
	}

	updated, err := s.items.AdjustLikes(ctx, itemID, delta)
	if err != nil {
		return nil, fmt.Errorf("update like count: %w", err)
	}
	invalidate(ctx, s.cache, itemKey(itemID), itemsKey())

	if delta > 0 {
		publish(ctx, s.feed, like.TableName(), realtime.Insert, like, nil)
	} else {
		publish(ctx, s.feed, like.TableName(), realtime.Delete, nil, like)
	}
	return &models.LikeStatus{ItemID: itemID, Liked: delta > 0, Likes: updated.Likes}, nil
}
