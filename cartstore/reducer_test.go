package cartstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sufra/models"
)

func item(id, branchID, qty int, price float64) models.CartItem {
	return models.CartItem{
		ID:       id,
		Name:     "meal",
		Price:    price,
		Quantity: qty,
		BranchID: branchID,
	}
}

func TestAddItemRejectsInvalid(t *testing.T) {
	state := emptyState()

	bad := []models.CartItem{
		{},
		{ID: 1, Name: "", Price: 1, Quantity: 1, BranchID: 1},
		{ID: 1, Name: "meal", Price: -1, Quantity: 1, BranchID: 1},
		{ID: 1, Name: "meal", Price: 1, Quantity: 0, BranchID: 1},
		{ID: 1, Name: "meal", Price: 1, Quantity: 1, BranchID: 0},
	}
	for _, it := range bad {
		next := Reduce(state, AddItem{Item: it})
		assert.Empty(t, next.BranchCarts)
	}
}

func TestAddItemZeroPriceAccepted(t *testing.T) {
	it := item(1, 1, 1, 0)
	next := Reduce(emptyState(), AddItem{Item: it})
	require.Len(t, next.BranchCarts[1].Items, 1)
	assert.Equal(t, 0.0, next.BranchCarts[1].Items[0].Price)
}

func TestAddItemRejectsOverStock(t *testing.T) {
	it := item(1, 1, 5, 2)
	it.MaxStock = 3
	next := Reduce(emptyState(), AddItem{Item: it})
	assert.Empty(t, next.BranchCarts)
}

func TestAddItemMergesAndClampsToStock(t *testing.T) {
	first := item(1, 1, 2, 10)
	first.MaxStock = 3
	state := Reduce(emptyState(), AddItem{Item: first})

	again := item(1, 1, 2, 12)
	again.MaxStock = 3
	state = Reduce(state, AddItem{Item: again})

	require.Len(t, state.BranchCarts[1].Items, 1)
	got := state.BranchCarts[1].Items[0]
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 12.0, got.Price, "re-add refreshes the price snapshot")
}

func TestAddItemMergeDefaultCeiling(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 998, 5)})
	state = Reduce(state, AddItem{Item: item(1, 1, 5, 5)})
	assert.Equal(t, maxQuantity, state.BranchCarts[1].Items[0].Quantity)
}

func TestAddItemIsolatesBranches(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 1, 5)})
	state = Reduce(state, AddItem{Item: item(1, 2, 4, 5)})

	require.Len(t, state.BranchCarts, 2)
	assert.Equal(t, 1, state.BranchCarts[1].Items[0].Quantity)
	assert.Equal(t, 4, state.BranchCarts[2].Items[0].Quantity)
}

func TestRemoveItemPrunesEmptyBranch(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 1, 5)})
	state = Reduce(state, RemoveItem{ID: 1, BranchID: 1})
	_, ok := state.BranchCarts[1]
	assert.False(t, ok, "last item removed must drop the branch entry")
}

func TestRemoveItemMissingIsNoop(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 1, 5)})
	next := Reduce(state, RemoveItem{ID: 9, BranchID: 1})
	assert.Equal(t, state, next)
	next = Reduce(state, RemoveItem{ID: 1, BranchID: 9})
	assert.Equal(t, state, next)
}

func TestUpdateQuantityClamps(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 5, 5)})

	state = Reduce(state, UpdateQuantity{ID: 1, BranchID: 1, Quantity: 5000})
	assert.Equal(t, maxQuantity, state.BranchCarts[1].Items[0].Quantity)

	state = Reduce(state, UpdateQuantity{ID: 1, BranchID: 1, Quantity: -3})
	assert.Equal(t, 1, state.BranchCarts[1].Items[0].Quantity)
}

func TestUpdateQuantityRejectsOverStock(t *testing.T) {
	it := item(1, 1, 2, 5)
	it.MaxStock = 4
	state := Reduce(emptyState(), AddItem{Item: it})
	next := Reduce(state, UpdateQuantity{ID: 1, BranchID: 1, Quantity: 9})
	assert.Equal(t, 2, next.BranchCarts[1].Items[0].Quantity)
}

func TestClearBranchLeavesOthers(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 1, 5)})
	state = Reduce(state, AddItem{Item: item(2, 2, 1, 5)})

	state = Reduce(state, ClearBranch{BranchID: 1})
	_, ok := state.BranchCarts[1]
	assert.False(t, ok)
	assert.Len(t, state.BranchCarts[2].Items, 1)
}

func TestClearAll(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 1, 5)})
	state = Reduce(state, ClearAll{})
	assert.Empty(t, state.BranchCarts)
	assert.Equal(t, CurrentVersion, state.Version)
}

func TestSetBranchNameCreatesEntry(t *testing.T) {
	state := Reduce(emptyState(), SetBranchName{BranchID: 7, BranchName: "Downtown"})
	branch, ok := state.BranchCarts[7]
	require.True(t, ok)
	assert.Equal(t, "Downtown", branch.BranchName)
	assert.Empty(t, branch.Items)
}

func TestMergeCartSumsWithoutCeiling(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 2, 5)})
	state = Reduce(state, MergeCart{Items: []models.CartItem{
		item(1, 1, 998, 5),
		item(2, 1, 1, 3),
		{ID: 0, Name: "bad"},
	}})

	require.Len(t, state.BranchCarts[1].Items, 2)
	assert.Equal(t, 1000, state.BranchCarts[1].Items[0].Quantity)
	assert.Equal(t, 1, state.BranchCarts[1].Items[1].Quantity)
}

func TestSyncCartReplacesState(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 2, 5)})
	incoming := models.CartState{Version: CurrentVersion}
	next := Reduce(state, SyncCart{State: incoming})
	assert.NotNil(t, next.BranchCarts)
	assert.Empty(t, next.BranchCarts)
}

func TestReduceNeverMutatesInput(t *testing.T) {
	state := Reduce(emptyState(), AddItem{Item: item(1, 1, 2, 5)})
	before := state.BranchCarts[1].Items[0].Quantity

	_ = Reduce(state, UpdateQuantity{ID: 1, BranchID: 1, Quantity: 9})
	_ = Reduce(state, RemoveItem{ID: 1, BranchID: 1})
	_ = Reduce(state, AddItem{Item: item(1, 1, 3, 5)})

	assert.Equal(t, before, state.BranchCarts[1].Items[0].Quantity)
}
