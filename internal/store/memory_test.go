package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AppendAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "user1", Notification{ID: "n1", Title: "first", CreatedAt: time.Now()}))
	require.NoError(t, s.Append(ctx, "user1", Notification{ID: "n2", Title: "second"}))
	require.NoError(t, s.Append(ctx, "user2", Notification{ID: "n3"}))

	list, err := s.List(ctx, "user1", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n1", list[0].ID)
	assert.Equal(t, "n2", list[1].ID)

	list, err = s.List(ctx, "user2", false)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.List(ctx, "stranger", false)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore_Dismiss(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Append(ctx, "user1", Notification{ID: "n1"})
	s.Append(ctx, "user1", Notification{ID: "n2"})

	ok, err := s.Dismiss(ctx, "user1", "n1")
	require.NoError(t, err)
	assert.True(t, ok)

	list, _ := s.List(ctx, "user1", false)
	require.Len(t, list, 1)
	assert.Equal(t, "n2", list[0].ID)

	list, _ = s.List(ctx, "user1", true)
	assert.Len(t, list, 2)

	ok, err = s.Dismiss(ctx, "user1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_MarkRead(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Append(ctx, "user1", Notification{ID: "n1"})
	s.Append(ctx, "user1", Notification{ID: "n2", Read: true})

	changed, err := s.MarkRead(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = s.MarkRead(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	list, _ := s.List(ctx, "user1", false)
	for _, n := range list {
		assert.True(t, n.Read)
	}
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Append(ctx, "user1", Notification{ID: "n1"})

	list, _ := s.List(ctx, "user1", false)
	list[0].Dismissed = true

	fresh, _ := s.List(ctx, "user1", false)
	require.Len(t, fresh, 1)
	assert.False(t, fresh[0].Dismissed, "mutating a List result must not change the store")
}
