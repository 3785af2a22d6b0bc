package recordsvc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenStore_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := OpenStore("")
	assert.Error(t, err)
}

func TestStore_CreateGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	rec, err := s.Create(ctx, "user", map[string]any{
		"name":       "Ada",
		"email":      "ada@example.com",
		"id":         "ignored",
		"created_at": "ignored",
	})
	require.NoError(t, err)
	assert.Len(t, rec.ID, 36)
	assert.NotEqual(t, "ignored", rec.ID)
	assert.Equal(t, map[string]any{"email": "ada@example.com"}, rec.Fields)

	got, err := s.Get(ctx, "user", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Fields["email"])
	assert.True(t, fixed.Equal(got.CreatedAt))
	assert.True(t, fixed.Equal(got.UpdatedAt))
}

func TestStore_CreateRequiresName(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for _, fields := range []map[string]any{
		{},
		{"name": ""},
		{"name": "   "},
		{"name": 42},
	} {
		_, err := s.Create(ctx, "user", fields)
		assert.ErrorIs(t, err, ErrNameRequired)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "user", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := s.Create(ctx, "product", map[string]any{"name": "Lamp"})
	require.NoError(t, err)
	// Kinds do not see each other's records.
	_, err = s.Get(ctx, "user", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}

	empty, err := s.List(ctx, "user")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, "user", map[string]any{"name": name})
		require.NoError(t, err)
	}
	_, err = s.Create(ctx, "product", map[string]any{"name": "p"})
	require.NoError(t, err)

	users, err := s.List(ctx, "user")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a", users[0].Name)
	assert.Equal(t, "c", users[2].Name)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	s, err := OpenStore(path)
	require.NoError(t, err)
	rec, err := s.Create(ctx, "user", map[string]any{"name": "Grace"})
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "user", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Name)
}

func TestRecord_MarshalJSON(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		ID:        "r1",
		Name:      "Lamp",
		Fields:    map[string]any{"price": 9.5, "name": "shadowed"},
		CreatedAt: at,
		UpdatedAt: at,
	}

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "r1",
		"name": "Lamp",
		"price": 9.5,
		"created_at": "2024-03-01T12:00:00Z",
		"updated_at": "2024-03-01T12:00:00Z"
	}`, string(b))
}
