package cartstore

import (
	"sort"

	"sufra/models"
)

// aggregates caches the whole-cart rollups for one state snapshot. The cache
// is dropped on every dispatch.
type aggregates struct {
	totalPrice       float64
	totalItems       int
	totalUniqueItems int
	overviews        []models.BranchOverview
}

func computeAggregates(state models.CartState) *aggregates {
	agg := &aggregates{}
	ids := make([]int, 0, len(state.BranchCarts))
	for id := range state.BranchCarts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		branch := state.BranchCarts[id]
		if len(branch.Items) == 0 {
			continue
		}
		var total float64
		for _, item := range branch.Items {
			total += item.Price * float64(item.Quantity)
			agg.totalItems += item.Quantity
		}
		agg.totalPrice += total
		agg.totalUniqueItems += len(branch.Items)
		agg.overviews = append(agg.overviews, models.BranchOverview{
			BranchID:   id,
			BranchName: branch.BranchName,
			ItemCount:  len(branch.Items),
			Total:      total,
		})
	}
	return agg
}

func (s *Store) aggregates() *aggregates {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agg == nil {
		s.agg = computeAggregates(s.state)
	}
	return s.agg
}

// TotalPrice is the sum of price*quantity over every item in every branch.
func (s *Store) TotalPrice() float64 {
	return s.aggregates().totalPrice
}

// TotalItems is the sum of quantities over every item in every branch.
func (s *Store) TotalItems() int {
	return s.aggregates().totalItems
}

// TotalUniqueItems counts line items across all branches. An item id held in
// two branches counts twice.
func (s *Store) TotalUniqueItems() int {
	return s.aggregates().totalUniqueItems
}

// BranchTotal is one branch's price*quantity sum; 0 when the branch is absent.
func (s *Store) BranchTotal(branchID int) float64 {
	state := s.State()
	branch, ok := state.BranchCarts[branchID]
	if !ok {
		return 0
	}
	var total float64
	for _, item := range branch.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// BranchItems returns one branch's line items; empty when absent.
func (s *Store) BranchItems(branchID int) []models.CartItem {
	state := s.State()
	branch, ok := state.BranchCarts[branchID]
	if !ok {
		return []models.CartItem{}
	}
	return branch.Items
}

// ItemQuantity returns the stored quantity of one item in one branch, 0 when
// either is absent.
func (s *Store) ItemQuantity(itemID, branchID int) int {
	state := s.State()
	branch, ok := state.BranchCarts[branchID]
	if !ok {
		return 0
	}
	if idx := indexOf(branch.Items, itemID); idx >= 0 {
		return branch.Items[idx].Quantity
	}
	return 0
}

// BranchInfo returns the full branch summary, or nil when the branch is absent.
func (s *Store) BranchInfo(branchID int) *models.BranchSummary {
	state := s.State()
	branch, ok := state.BranchCarts[branchID]
	if !ok {
		return nil
	}
	return &models.BranchSummary{
		BranchID:    branchID,
		BranchName:  branch.BranchName,
		Items:       branch.Items,
		ItemCount:   len(branch.Items),
		Total:       s.BranchTotal(branchID),
		LastUpdated: branch.LastUpdated,
	}
}

// AllBranches lists every branch holding a non-empty cart, ascending by id.
func (s *Store) AllBranches() []models.BranchOverview {
	overviews := s.aggregates().overviews
	if overviews == nil {
		return []models.BranchOverview{}
	}
	return overviews
}
