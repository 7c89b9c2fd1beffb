package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase/mocks"
)

func TestCachedClientDirectoryListByOwner(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockClientDirectory(ctrl)
	dir := NewCachedClientDirectory(next, NewCache(client, nil), time.Minute, zerolog.Nop())
	ctx := context.Background()

	clients := []domain.Client{{ID: "c1", OwnerID: "user-1", Name: "Ana"}}
	next.EXPECT().ListByOwner(gomock.Any(), "user-1").Return(clients, nil).Times(1)

	first, err := dir.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	second, err := dir.ListByOwner(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, clients, first)
	assert.Equal(t, clients, second)
}

func TestCachedClientDirectoryInvalidate(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockClientDirectory(ctrl)
	dir := NewCachedClientDirectory(next, NewCache(client, nil), time.Minute, zerolog.Nop())
	ctx := context.Background()

	next.EXPECT().ListByOwner(gomock.Any(), "user-1").Return([]domain.Client{{ID: "c1", Name: "Ana"}}, nil)
	next.EXPECT().ListByOwner(gomock.Any(), "user-1").Return([]domain.Client{{ID: "c1", Name: "Ana"}, {ID: "c2", Name: "Bia"}}, nil)

	_, err := dir.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, dir.Invalidate(ctx, "user-1"))

	clients, err := dir.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}

func TestCachedClientDirectoryGetByID(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockClientDirectory(ctrl)
	dir := NewCachedClientDirectory(next, NewCache(client, nil), time.Minute, zerolog.Nop())
	ctx := context.Background()

	next.EXPECT().GetByID(gomock.Any(), "user-1", "c1").Return(&domain.Client{ID: "c1", Name: "Ana"}, nil).Times(1)

	for i := 0; i < 2; i++ {
		c, err := dir.GetByID(ctx, "user-1", "c1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", c.Name)
	}
}

func TestCachedClientDirectoryDoesNotCacheErrors(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockClientDirectory(ctrl)
	dir := NewCachedClientDirectory(next, NewCache(client, nil), time.Minute, zerolog.Nop())
	ctx := context.Background()

	next.EXPECT().GetByID(gomock.Any(), "user-1", "nope").Return(nil, domain.ErrClientNotFound).Times(2)

	for i := 0; i < 2; i++ {
		_, err := dir.GetByID(ctx, "user-1", "nope")
		assert.True(t, errors.Is(err, domain.ErrClientNotFound))
	}
}

func TestCachedClientDirectoryFallsBackWhenRedisDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	ctrl := gomock.NewController(t)
	next := mocks.NewMockClientDirectory(ctrl)
	dir := NewCachedClientDirectory(next, NewCache(client, nil), time.Minute, zerolog.Nop())

	next.EXPECT().ListByOwner(gomock.Any(), "user-1").Return([]domain.Client{{ID: "c1"}}, nil)

	clients, err := dir.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}
