package services

import (
	"context"
	"strings"
	"testing"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFallsBackToAccountEmail(t *testing.T) {
	svc := NewProfileService(newFakeProfiles(), newFakeUsers(buyer), &fakeObjects{}, nil)

	p, err := svc.Get(context.Background(), buyer)
	require.NoError(t, err)
	assert.Equal(t, buyer, p.ID)
	assert.Equal(t, "user2@example.com", p.Email)

	_, err = svc.Get(context.Background(), 0)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestUpdateProfileUpsertsAvatar(t *testing.T) {
	profiles, objects := newFakeProfiles(), &fakeObjects{}
	svc := NewProfileService(profiles, newFakeUsers(buyer), objects, nil)
	avatar := &Upload{Body: strings.NewReader("jpeg"), Size: 4, ContentType: "image/jpeg", Filename: "me.jpeg"}

	p, err := svc.Update(context.Background(), buyer, models.UpdateProfileRequest{Username: " 당근러 ", Location: "망원동"}, avatar)
	require.NoError(t, err)
	assert.Equal(t, "당근러", p.Username)
	assert.Equal(t, "http://cdn.test/avatars/2.jpeg", p.AvatarURL)

	require.Len(t, objects.uploads, 1)
	assert.Equal(t, AvatarsBucket, objects.uploads[0].bucket)
	assert.True(t, objects.uploads[0].upsert)
	assert.Equal(t, "당근러", profiles.rows[buyer].Username)

	// A later edit without an avatar keeps the stored one
	p, err = svc.Update(context.Background(), buyer, models.UpdateProfileRequest{Username: "당근러", Phone: "010-0000-0000"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/avatars/2.jpeg", p.AvatarURL)
	assert.Equal(t, "010-0000-0000", profiles.rows[buyer].Phone)
}
