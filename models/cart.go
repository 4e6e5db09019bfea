package models

// CartItem is one line item inside one branch's cart. Price is snapshotted at
// add-time; MaxStock of zero means no stock ceiling.
type CartItem struct {
	ID       int     `json:"id" bson:"id"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
	BranchID int     `json:"branchId" bson:"branchId"`
	MaxStock int     `json:"maxStock,omitempty" bson:"maxStock,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	SKU      string  `json:"sku,omitempty" bson:"sku,omitempty"`
}

// BranchCart holds one branch's line items. A branch entry with no items is
// never kept around; the reducer prunes it from the parent map.
type BranchCart struct {
	Items       []CartItem `json:"items" bson:"items"`
	BranchName  string     `json:"branchName,omitempty" bson:"branchName,omitempty"`
	LastUpdated string     `json:"lastUpdated,omitempty" bson:"lastUpdated,omitempty"`
}

// CartState is the root cart aggregate, keyed by branch id.
type CartState struct {
	BranchCarts map[int]BranchCart `json:"branchCarts" bson:"branchCarts"`
	Version     int                `json:"version" bson:"version"`
}

// BranchSummary is the full per-branch projection returned by the store.
type BranchSummary struct {
	BranchID    int        `json:"branchId"`
	BranchName  string     `json:"branchName,omitempty"`
	Items       []CartItem `json:"items"`
	ItemCount   int        `json:"itemCount"`
	Total       float64    `json:"total"`
	LastUpdated string     `json:"lastUpdated,omitempty"`
}

// BranchOverview is the lightweight per-branch row used in cart listings.
type BranchOverview struct {
	BranchID   int     `json:"branchId"`
	BranchName string  `json:"branchName,omitempty"`
	ItemCount  int     `json:"itemCount"`
	Total      float64 `json:"total"`
}
