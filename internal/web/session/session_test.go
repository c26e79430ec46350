package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess := New("sess-1", "user-1", "admin@example.com", time.Hour)

	err := store.Set(ctx, sess.ID, sess, time.Hour)
	require.NoError(t, err)

	retrieved, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", retrieved.UserID)
	assert.Equal(t, "admin@example.com", retrieved.Email)
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpired(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess := New("sess-1", "user-1", "admin@example.com", -time.Minute)
	require.NoError(t, store.Set(ctx, sess.ID, sess, -time.Minute))

	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess := New("sess-1", "user-1", "admin@example.com", time.Hour)
	require.NoError(t, store.Set(ctx, sess.ID, sess, time.Hour))
	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStoreFromClient(client, "")
}

func TestRedisStoreGetSet(t *testing.T) {
	store := newRedisTestStore(t)

	ctx := context.Background()
	sess := New("sess-1", "user-1", "admin@example.com", time.Hour)

	require.NoError(t, store.Set(ctx, sess.ID, sess, time.Hour))

	retrieved, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, retrieved.ID)
	assert.Equal(t, "user-1", retrieved.UserID)
}

func TestRedisStoreNotFound(t *testing.T) {
	store := newRedisTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	store := newRedisTestStore(t)

	ctx := context.Background()
	sess := New("sess-1", "user-1", "admin@example.com", time.Hour)
	require.NoError(t, store.Set(ctx, sess.ID, sess, time.Hour))
	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerCookieRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	manager := NewManager(store, Config{
		CookieName: "lucent_session",
		TTL:        time.Hour,
		JWTSecret:  []byte("test-secret"),
	})

	w := httptest.NewRecorder()
	sess, token, err := manager.Create(context.Background(), w, "user-1", "admin@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "lucent_session", cookies[0].Name)
	assert.Equal(t, sess.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])

	resolved, err := manager.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", resolved.UserID)
}

func TestManagerBearerToken(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	manager := NewManager(store, Config{TTL: time.Hour, JWTSecret: []byte("test-secret")})

	w := httptest.NewRecorder()
	_, token, err := manager.Create(context.Background(), w, "user-1", "admin@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	resolved, err := manager.FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", resolved.UserID)
}

func TestManagerRejectsForgedToken(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	manager := NewManager(store, Config{TTL: time.Hour, JWTSecret: []byte("test-secret")})
	other := NewManager(store, Config{TTL: time.Hour, JWTSecret: []byte("other-secret")})

	w := httptest.NewRecorder()
	_, token, err := other.Create(context.Background(), w, "user-1", "admin@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err = manager.FromRequest(r)
	assert.Error(t, err)
}

func TestManagerDestroy(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	manager := NewManager(store, Config{CookieName: "lucent_session", TTL: time.Hour, JWTSecret: []byte("s")})

	w := httptest.NewRecorder()
	_, _, err := manager.Create(context.Background(), w, "user-1", "admin@example.com")
	require.NoError(t, err)
	cookie := w.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.AddCookie(cookie)

	w2 := httptest.NewRecorder()
	require.NoError(t, manager.Destroy(w2, r))

	cleared := w2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookie)
	_, err = manager.FromRequest(r2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
