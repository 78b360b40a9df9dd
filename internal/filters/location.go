package filters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrAnonymous is returned when an anonymous viewer tries to store a selection.
var ErrAnonymous = errors.New("location selection requires a signed-in viewer")

// LocationState is the neighborhood each viewer browses items in. An empty
// location means every neighborhood.
type LocationState interface {
	Selected(ctx context.Context, viewerID uint) (string, error)
	Select(ctx context.Context, viewerID uint, location string) error
}

// RedisLocationState keeps selections in Redis so every API instance sees them.
type RedisLocationState struct {
	client *redis.Client
}

func NewRedisLocationState(client *redis.Client) *RedisLocationState {
	return &RedisLocationState{client: client}
}

func locationKey(viewerID uint) string {
	return fmt.Sprintf("filters:location:%d", viewerID)
}

// Selected returns the viewer's location, or "" when none is chosen.
func (s *RedisLocationState) Selected(ctx context.Context, viewerID uint) (string, error) {
	if viewerID == 0 {
		return "", nil
	}
	loc, err := s.client.Get(ctx, locationKey(viewerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read selected location: %w", err)
	}
	return loc, nil
}

// Select stores the viewer's location; a blank location clears it.
func (s *RedisLocationState) Select(ctx context.Context, viewerID uint, location string) error {
	if viewerID == 0 {
		return ErrAnonymous
	}
	location = strings.TrimSpace(location)
	if location == "" {
		if err := s.client.Del(ctx, locationKey(viewerID)).Err(); err != nil {
			return fmt.Errorf("clear selected location: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, locationKey(viewerID), location, 0).Err(); err != nil {
		return fmt.Errorf("store selected location: %w", err)
	}
	return nil
}
