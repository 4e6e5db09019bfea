package cart

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"sufra/cartstore"
	"sufra/checkout"
	"sufra/globals"
	"sufra/models"
	"sufra/utils"

	"github.com/julienschmidt/httprouter"
)

// Storage and Submitter are wired once at startup, like the db package's
// collection handles.
var (
	Storage   cartstore.Storage
	Submitter checkout.Submitter
)

// cartKey scopes a cart to the logged-in user, or to the guest id the client
// generated and carries in a header.
func cartKey(r *http.Request) (string, bool) {
	if userID, ok := r.Context().Value(globals.UserIDKey).(string); ok && userID != "" {
		return "user:" + userID, true
	}
	if guestID := r.Header.Get("X-Guest-ID"); guestID != "" {
		return "guest:" + guestID, true
	}
	return "", false
}

func loadStore(w http.ResponseWriter, r *http.Request) (*cartstore.Store, bool) {
	key, ok := cartKey(r)
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing user or guest identity")
		return nil, false
	}
	return cartstore.Load(r.Context(), Storage, key), true
}

func branchParam(w http.ResponseWriter, ps httprouter.Params) (int, bool) {
	id, err := strconv.Atoi(ps.ByName("branchid"))
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid branch id")
		return 0, false
	}
	return id, true
}

// GetCart returns the full cart snapshot.
func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// GetSummary returns cart-wide totals plus the per-branch overview rows.
func GetSummary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"totalPrice":       store.TotalPrice(),
		"totalItems":       store.TotalItems(),
		"totalUniqueItems": store.TotalUniqueItems(),
		"branches":         store.AllBranches(),
	})
}

// GetBranchCart returns one branch's summary, 404 when the branch holds
// nothing.
func GetBranchCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, ps)
	if !ok {
		return
	}
	info := store.BranchInfo(branchID)
	if info == nil {
		utils.RespondWithError(w, http.StatusNotFound, "No cart for branch")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, info)
}

// AddItem adds a line item. Invalid or over-stock items leave the cart
// unchanged; the response carries the resulting quantity so the client can
// tell a rejected add from a clamped merge.
func AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	var item models.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	store.Dispatch(r.Context(), cartstore.AddItem{Item: item})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"quantity": store.ItemQuantity(item.ID, item.BranchID),
		"cart":     store.State(),
	})
}

// UpdateQuantity sets a line item's quantity, clamped to the allowed range.
func UpdateQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, ps)
	if !ok {
		return
	}
	itemID, err := strconv.Atoi(ps.ByName("itemid"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	store.Dispatch(r.Context(), cartstore.UpdateQuantity{
		ID: itemID, BranchID: branchID, Quantity: body.Quantity,
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"quantity": store.ItemQuantity(itemID, branchID),
	})
}

// RemoveItem deletes a line item from a branch.
func RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, ps)
	if !ok {
		return
	}
	itemID, err := strconv.Atoi(ps.ByName("itemid"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}
	store.Dispatch(r.Context(), cartstore.RemoveItem{ID: itemID, BranchID: branchID})
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// ClearBranch empties one branch's cart.
func ClearBranch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, ps)
	if !ok {
		return
	}
	store.Dispatch(r.Context(), cartstore.ClearBranch{BranchID: branchID})
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// ClearCart empties everything.
func ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	store.Dispatch(r.Context(), cartstore.ClearAll{})
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// SetBranchName records the branch display name on the cart entry.
func SetBranchName(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, ps)
	if !ok {
		return
	}
	var body struct {
		BranchName string `json:"branchName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	store.Dispatch(r.Context(), cartstore.SetBranchName{
		BranchID: branchID, BranchName: body.BranchName,
	})
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// MergeCart folds a guest cart's items into the caller's cart, used right
// after login.
func MergeCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	var body struct {
		Items []models.CartItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	store.Dispatch(r.Context(), cartstore.MergeCart{Items: body.Items})
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// ExportCart hands the caller a transportable snapshot of their cart.
func ExportCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	blob, err := store.Export()
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to export cart")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"data": blob})
}

// ImportCart replaces the caller's cart with a previously exported snapshot.
func ImportCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	var body struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Data == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := store.Import(r.Context(), body.Data); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Not a cart snapshot")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, store.State())
}

// SaveBackup writes the session backup snapshot; the client calls this on
// tab close.
func SaveBackup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	store.SaveBackup(r.Context())
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

func checkoutError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, checkout.ErrBusy):
		utils.RespondWithError(w, http.StatusConflict, "Checkout already in progress")
	case errors.Is(err, checkout.ErrEmptyBranch):
		utils.RespondWithError(w, http.StatusBadRequest, "Cart is empty")
	default:
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
	}
}

// CheckoutBranch submits one branch's cart as an order.
func CheckoutBranch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, ps)
	if !ok {
		return
	}
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	result, err := checkout.New(Submitter, userID).CheckoutBranch(r.Context(), store, branchID, form)
	if err != nil {
		checkoutError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "result": result})
}

// CheckoutAll submits every non-empty branch cart as its own order.
func CheckoutAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	store, ok := loadStore(w, r)
	if !ok {
		return
	}
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	result, err := checkout.New(Submitter, userID).CheckoutAll(r.Context(), store, form)
	if err != nil {
		checkoutError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"success": true, "result": result})
}
