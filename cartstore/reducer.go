package cartstore

import (
	"log"
	"time"

	"sufra/models"
)

const (
	maxQuantity = 999

	// CurrentVersion tags persisted cart snapshots. Version 1 snapshots are
	// migrated on load; see decodeState.
	CurrentVersion = 2
)

// Action is a tagged cart mutation. The reducer is the only way cart state
// changes; every action returns a fresh state and never mutates its input.
type Action interface {
	isAction()
}

type AddItem struct {
	Item models.CartItem
}

type RemoveItem struct {
	ID       int
	BranchID int
}

type UpdateQuantity struct {
	ID       int
	BranchID int
	Quantity int
}

type ClearBranch struct {
	BranchID int
}

type ClearAll struct{}

type SetBranchName struct {
	BranchID   int
	BranchName string
}

type SyncCart struct {
	State models.CartState
}

type MergeCart struct {
	Items []models.CartItem
}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (ClearBranch) isAction()    {}
func (ClearAll) isAction()       {}
func (SetBranchName) isAction()  {}
func (SyncCart) isAction()       {}
func (MergeCart) isAction()      {}

func emptyState() models.CartState {
	return models.CartState{
		BranchCarts: map[int]models.BranchCart{},
		Version:     CurrentVersion,
	}
}

// validItem rejects malformed line items. Failures are logged by callers,
// never surfaced as errors.
func validItem(item models.CartItem) bool {
	if item.ID <= 0 {
		return false
	}
	if item.Name == "" {
		return false
	}
	if item.Price < 0 {
		return false
	}
	if item.Quantity <= 0 {
		return false
	}
	if item.BranchID <= 0 {
		return false
	}
	return true
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func cloneCarts(carts map[int]models.BranchCart) map[int]models.BranchCart {
	out := make(map[int]models.BranchCart, len(carts))
	for id, branch := range carts {
		out[id] = branch
	}
	return out
}

func cloneItems(items []models.CartItem) []models.CartItem {
	return append([]models.CartItem(nil), items...)
}

func indexOf(items []models.CartItem, id int) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// Reduce applies one action to a cart state and returns the next state.
// Bad input degrades to a no-op: the reducer never panics and never errors.
func Reduce(state models.CartState, action Action) models.CartState {
	switch a := action.(type) {

	case AddItem:
		item := a.Item
		if !validItem(item) {
			log.Printf("cart: rejecting invalid item id=%d branch=%d", item.ID, item.BranchID)
			return state
		}
		// Over-stock adds are rejected outright, not clamped.
		if item.MaxStock > 0 && item.Quantity > item.MaxStock {
			log.Printf("cart: item %d exceeds max stock %d", item.ID, item.MaxStock)
			return state
		}

		carts := cloneCarts(state.BranchCarts)
		branch := carts[item.BranchID]
		items := cloneItems(branch.Items)

		if idx := indexOf(items, item.ID); idx >= 0 {
			existing := items[idx]
			ceiling := existing.MaxStock
			if ceiling == 0 {
				ceiling = maxQuantity
			}
			q := existing.Quantity + item.Quantity
			if q > ceiling {
				q = ceiling
			}
			existing.Quantity = q
			existing.Price = item.Price // price refresh on re-add
			items[idx] = existing
		} else {
			items = append(items, item)
		}

		branch.Items = items
		branch.LastUpdated = timestamp()
		carts[item.BranchID] = branch
		return models.CartState{BranchCarts: carts, Version: state.Version}

	case RemoveItem:
		branch, ok := state.BranchCarts[a.BranchID]
		if !ok {
			return state
		}
		idx := indexOf(branch.Items, a.ID)
		if idx < 0 {
			return state
		}

		carts := cloneCarts(state.BranchCarts)
		items := cloneItems(branch.Items)
		items = append(items[:idx], items[idx+1:]...)
		if len(items) == 0 {
			delete(carts, a.BranchID)
			return models.CartState{BranchCarts: carts, Version: state.Version}
		}
		branch.Items = items
		branch.LastUpdated = timestamp()
		carts[a.BranchID] = branch
		return models.CartState{BranchCarts: carts, Version: state.Version}

	case UpdateQuantity:
		branch, ok := state.BranchCarts[a.BranchID]
		if !ok {
			return state
		}
		idx := indexOf(branch.Items, a.ID)
		if idx < 0 {
			return state
		}

		q := a.Quantity
		if q > maxQuantity {
			q = maxQuantity
		}
		if q < 1 {
			q = 1
		}

		if ms := branch.Items[idx].MaxStock; ms > 0 && q > ms {
			log.Printf("cart: quantity %d exceeds max stock for item %d", q, a.ID)
			return state
		}

		carts := cloneCarts(state.BranchCarts)
		items := cloneItems(branch.Items)
		if q <= 0 {
			// Unreachable after clamping; kept so a clamp-rule change keeps
			// the removal semantics.
			items = append(items[:idx], items[idx+1:]...)
		} else {
			items[idx].Quantity = q
		}

		if len(items) == 0 {
			delete(carts, a.BranchID)
			return models.CartState{BranchCarts: carts, Version: state.Version}
		}
		branch.Items = items
		branch.LastUpdated = timestamp()
		carts[a.BranchID] = branch
		return models.CartState{BranchCarts: carts, Version: state.Version}

	case ClearBranch:
		if _, ok := state.BranchCarts[a.BranchID]; !ok {
			return state
		}
		carts := cloneCarts(state.BranchCarts)
		delete(carts, a.BranchID)
		return models.CartState{BranchCarts: carts, Version: state.Version}

	case ClearAll:
		return emptyState()

	case SetBranchName:
		carts := cloneCarts(state.BranchCarts)
		branch := carts[a.BranchID]
		branch.BranchName = a.BranchName
		if branch.Items == nil {
			branch.Items = []models.CartItem{}
		}
		carts[a.BranchID] = branch
		return models.CartState{BranchCarts: carts, Version: state.Version}

	case SyncCart:
		next := a.State
		if next.BranchCarts == nil {
			next.BranchCarts = map[int]models.BranchCart{}
		}
		return next

	case MergeCart:
		carts := cloneCarts(state.BranchCarts)
		for _, item := range a.Items {
			if !validItem(item) {
				log.Printf("cart: skipping invalid merge item id=%d branch=%d", item.ID, item.BranchID)
				continue
			}
			branch := carts[item.BranchID]
			items := cloneItems(branch.Items)
			if idx := indexOf(items, item.ID); idx >= 0 {
				// Quantities are summed with no stock ceiling here; AddItem
				// enforces one. Kept as-is to match the shipped behavior.
				items[idx].Quantity += item.Quantity
			} else {
				items = append(items, item)
			}
			branch.Items = items
			carts[item.BranchID] = branch
		}
		return models.CartState{BranchCarts: carts, Version: state.Version}

	default:
		return state
	}
}
