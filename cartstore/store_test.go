package cartstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sufra/models"
)

func redisStorage(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStorage(client)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := redisStorage(t)

	s := New(storage, "u1")
	s.Dispatch(ctx, AddItem{Item: item(1, 1, 2, 10)})
	s.Dispatch(ctx, AddItem{Item: item(2, 3, 1, 4)})
	s.Dispatch(ctx, SetBranchName{BranchID: 1, BranchName: "Downtown"})

	loaded := Load(ctx, storage, "u1")
	assert.Equal(t, s.State(), loaded.State())
}

func TestLoadMissingKeyYieldsEmptyCart(t *testing.T) {
	s := Load(context.Background(), NewMemoryStorage(), "nobody")
	state := s.State()
	assert.Empty(t, state.BranchCarts)
	assert.Equal(t, CurrentVersion, state.Version)
}

func TestLoadCorruptBlobYieldsEmptyCart(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, primaryKeyPrefix+"u1", []byte("{nope"), 0))

	s := Load(ctx, storage, "u1")
	assert.Empty(t, s.State().BranchCarts)
}

func TestLoadMigratesVersionOne(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	old := models.CartState{
		BranchCarts: map[int]models.BranchCart{
			1: {Items: []models.CartItem{item(1, 1, 2, 10)}},
		},
		Version: 1,
	}
	raw, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, primaryKeyPrefix+"u1", raw, 0))

	s := Load(ctx, storage, "u1")
	state := s.State()
	assert.Equal(t, CurrentVersion, state.Version)
	assert.Len(t, state.BranchCarts[1].Items, 1)
}

func TestLoadUnknownVersionPassesThrough(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, primaryKeyPrefix+"u1",
		[]byte(`{"branchCarts":{},"version":7}`), 0))

	s := Load(ctx, storage, "u1")
	assert.Equal(t, 7, s.State().Version)
}

func TestLoadDrainsBackup(t *testing.T) {
	ctx := context.Background()
	storage := redisStorage(t)

	s := New(storage, "u1")
	s.Dispatch(ctx, AddItem{Item: item(1, 1, 2, 10)})
	s.SaveBackup(ctx)

	_ = Load(ctx, storage, "u1")
	_, err := storage.Get(ctx, backupKeyPrefix+"u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := New(NewMemoryStorage(), "u1")
	src.Dispatch(ctx, AddItem{Item: item(1, 1, 2, 10)})
	src.Dispatch(ctx, AddItem{Item: item(5, 2, 3, 7)})

	blob, err := src.Export()
	require.NoError(t, err)

	dst := New(NewMemoryStorage(), "u2")
	require.NoError(t, dst.Import(ctx, blob))
	assert.Equal(t, src.State(), dst.State())
}

func TestImportRejectsForeignBlob(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), "u1")

	assert.ErrorIs(t, s.Import(ctx, "not json"), ErrInvalidImport)
	assert.ErrorIs(t, s.Import(ctx, `{"version":2}`), ErrInvalidImport)
	assert.ErrorIs(t, s.Import(ctx, `{"branchCarts":{}}`), ErrInvalidImport)
}

func TestSelectors(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), "u1")
	s.Dispatch(ctx, AddItem{Item: item(1, 1, 2, 10)}) // 20
	s.Dispatch(ctx, AddItem{Item: item(2, 1, 1, 3)})  // 3
	s.Dispatch(ctx, AddItem{Item: item(1, 2, 4, 5)})  // 20
	s.Dispatch(ctx, SetBranchName{BranchID: 1, BranchName: "Downtown"})

	assert.Equal(t, 43.0, s.TotalPrice())
	assert.Equal(t, 7, s.TotalItems())
	assert.Equal(t, 3, s.TotalUniqueItems())
	assert.Equal(t, 23.0, s.BranchTotal(1))
	assert.Equal(t, 0.0, s.BranchTotal(9))
	assert.Equal(t, 4, s.ItemQuantity(1, 2))
	assert.Equal(t, 0, s.ItemQuantity(1, 9))
	assert.Len(t, s.BranchItems(1), 2)
	assert.Empty(t, s.BranchItems(9))

	info := s.BranchInfo(1)
	require.NotNil(t, info)
	assert.Equal(t, "Downtown", info.BranchName)
	assert.Equal(t, 23.0, info.Total)
	assert.Nil(t, s.BranchInfo(9))

	branches := s.AllBranches()
	require.Len(t, branches, 2)
	assert.Equal(t, 1, branches[0].BranchID)
	assert.Equal(t, 2, branches[1].BranchID)
}

func TestAllBranchesSkipsEmptyEntries(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), "u1")
	s.Dispatch(ctx, SetBranchName{BranchID: 5, BranchName: "Ghost"})
	assert.Empty(t, s.AllBranches())
}

func TestStateJSONShape(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), "u1")
	s.Dispatch(ctx, AddItem{Item: item(1, 4, 2, 10)})

	blob, err := s.Export()
	require.NoError(t, err)

	var shape map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(blob), &shape))
	assert.Contains(t, shape, "branchCarts")
	assert.Contains(t, shape, "version")

	var carts map[string]models.BranchCart
	require.NoError(t, json.Unmarshal(shape["branchCarts"], &carts))
	assert.Contains(t, carts, "4", "branch ids serialize as string object keys")
}
