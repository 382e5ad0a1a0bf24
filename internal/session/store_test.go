package session

import (
	"context"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/cache"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(cache.NewInMemory(1024), 30*time.Minute)
}

func TestStore_CreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "user-1", "iphone", "10.0.0.1", "ua")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sess, found, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "user-1", sess.UserID)
	require.True(t, sess.ExpiresAt.After(sess.LastActivity) || sess.ExpiresAt.Equal(sess.LastActivity))
}

func TestStore_GetSession_BumpsLastActivity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "user-1", "", "", "")
	require.NoError(t, err)

	first, _, err := store.GetSession(ctx, id)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, _, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.True(t, second.LastActivity.After(first.LastActivity))
}

func TestStore_DeleteSession_RemovesFromIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "user-2", "", "", "")
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, id))

	_, found, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.False(t, found)

	sessions, err := store.GetUserSessions(ctx, "user-2")
	require.NoError(t, err)
	require.Empty(t, sessions)
}

func TestStore_GetUserSessions_MultipleSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id1, err := store.CreateSession(ctx, "user-3", "device-a", "", "")
	require.NoError(t, err)
	id2, err := store.CreateSession(ctx, "user-3", "device-b", "", "")
	require.NoError(t, err)

	sessions, err := store.GetUserSessions(ctx, "user-3")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []string{sessions[0].SessionID, sessions[1].SessionID}
	require.ElementsMatch(t, []string{id1, id2}, ids)
}
