package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"github.com/anonto42/dongne-market/backend/pkg/storage"
	"github.com/google/uuid"
)

const searchLimit = 10

// ItemService lists, searches and edits marketplace items
type ItemService struct {
	items   repositories.ItemRepository
	likes   repositories.LikeRepository
	objects storage.ObjectStore
	feed    realtime.Feed
	cache   *querycache.Cache
}

func NewItemService(items repositories.ItemRepository, likes repositories.LikeRepository, objects storage.ObjectStore, feed realtime.Feed, cache *querycache.Cache) *ItemService {
	return &ItemService{items: items, likes: likes, objects: objects, feed: feed, cache: cache}
}

// Create lists a new item owned by the viewer, uploading its image first
func (s *ItemService) Create(ctx context.Context, viewerID uint, req models.CreateItemRequest, image *Upload) (*models.Item, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	item := &models.Item{
		Title:       strings.TrimSpace(req.Title),
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		UserID:      viewerID,
	}
	if item.Title == "" {
		return nil, validationError("title is required")
	}
	if item.Price < 0 {
		return nil, validationError("price must not be negative")
	}

	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	invalidate(ctx, s.cache, itemsKey(), locationsKey())
	publish(ctx, s.feed, models.ItemsCollection, realtime.Insert, item, nil)
	return item, nil
}

func (s *ItemService) uploadImage(ctx context.Context, image *Upload) (string, error) {
	key := uuid.NewString() + image.ext()
	if err := s.objects.Upload(ctx, ItemImagesBucket, key, image.Body, image.Size, image.ContentType, false); err != nil {
		return "", fmt.Errorf("upload item image: %w", err)
	}
	return s.objects.PublicURL(ItemImagesBucket, key), nil
}

// Get returns an item without counting a view
func (s *ItemService) Get(ctx context.Context, id string) (*models.Item, error) {
	return querycache.Fetch(ctx, s.cache, itemKey(id), func(ctx context.Context) (*models.Item, error) {
		item, err := s.items.GetItemByID(ctx, id)
		if err != nil {
			return nil, lookupError("item", err)
		}
		return item, nil
	})
}

// View counts a detail view and returns the item with its new counters
func (s *ItemService) View(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.items.IncrementViews(ctx, id)
	if err != nil {
		return nil, lookupError("item", err)
	}
	invalidate(ctx, s.cache, itemKey(id), itemsKey())
	return item, nil
}

// Update edits an item; only its owner may do so
func (s *ItemService) Update(ctx context.Context, id string, viewerID uint, req models.UpdateItemRequest) (*models.Item, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	item, err := s.items.GetItemByID(ctx, id)
	if err != nil {
		return nil, lookupError("item", err)
	}
	if item.UserID != viewerID {
		return nil, fmt.Errorf("item %s: %w", id, ErrForbidden)
	}
	old := *item

	if t := strings.TrimSpace(req.Title); t != "" {
		item.Title = t
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, validationError("price must not be negative")
		}
		item.Price = *req.Price
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if l := strings.TrimSpace(req.Location); l != "" {
		item.Location = l
	}
	if req.ImageURL != "" {
		item.ImageURL = req.ImageURL
	}

	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, lookupError("item", err)
	}
	invalidate(ctx, s.cache, itemKey(id), itemsKey(), locationsKey(), chatRoomsKey())
	publish(ctx, s.feed, models.ItemsCollection, realtime.Update, item, old)
	return item, nil
}

// List returns items newest first, optionally in a single location
func (s *ItemService) List(ctx context.Context, location string) ([]models.Item, error) {
	location = strings.TrimSpace(location)
	return querycache.Fetch(ctx, s.cache, itemsByLocationKey(location), func(ctx context.Context) ([]models.Item, error) {
		items, err := s.items.ListItems(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		return items, nil
	})
}

// Search matches titles containing the query. A blank query matches nothing.
func (s *ItemService) Search(ctx context.Context, query string) ([]models.ItemSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.ItemSummary{}, nil
	}
	items, err := s.items.SearchItems(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	out := make([]models.ItemSummary, len(items))
	for i := range items {
		out[i] = items[i].ToSummary()
	}
	return out, nil
}

func (s *ItemService) Locations(ctx context.Context) ([]string, error) {
	return querycache.Fetch(ctx, s.cache, locationsKey(), func(ctx context.Context) ([]string, error) {
		locs, err := s.items.ListLocations(ctx)
		if err != nil {
			return nil, fmt.Errorf("list locations: %w", err)
		}
		return locs, nil
	})
}

// Selling returns the items the viewer listed, newest first
func (s *ItemService) Selling(ctx context.Context, viewerID uint) ([]models.Item, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	items, err := s.items.ListItemsByUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list selling items: %w", err)
	}
	return items, nil
}

// Liked returns the items the viewer liked, most recent like first
func (s *ItemService) Liked(ctx context.Context, viewerID uint) ([]models.Item, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	ids, err := s.likes.GetLikedItemIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list liked item ids: %w", err)
	}
	found, err := s.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load liked items: %w", err)
	}

	byID := make(map[string]models.Item, len(found))
	for _, it := range found {
		byID[it.ID.Hex()] = it
	}
	items := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}
