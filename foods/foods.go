package foods

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"sufra/db"
	"sufra/globals"
	"sufra/models"
	"sufra/rdx"
	"sufra/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func menuCacheKey(branchID int, category string) string {
	return fmt.Sprintf("menu:%d:%s", branchID, category)
}

func invalidateMenuCache(branchID int) {
	if rdx.Conn == nil {
		return
	}
	iter := rdx.Conn.Scan(globals.Ctx, 0, fmt.Sprintf("menu:%d:*", branchID), 100).Iterator()
	for iter.Next(globals.Ctx) {
		if err := rdx.RdxDel(iter.Val()); err != nil {
			log.Println("foods: cache invalidation failed:", err)
		}
	}
}

// callerBranch resolves the branch a branch admin manages. Super admins pass
// any branch.
func callerBranch(r *http.Request, branchID int) bool {
	roles, _ := r.Context().Value(globals.RoleKey).([]string)
	for _, role := range roles {
		if role == models.RoleSuperAdmin {
			return true
		}
	}
	userID, _ := r.Context().Value(globals.UserIDKey).(string)
	var user models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user)
	if err != nil {
		return false
	}
	return user.BranchID == branchID
}

// GetFoods lists a branch's menu, optionally filtered by ?category=. Served
// from Redis when the same listing was built recently.
func GetFoods(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branchID, err := strconv.Atoi(ps.ByName("branchid"))
	if err != nil || branchID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid branch id")
		return
	}
	category := r.URL.Query().Get("category")

	if rdx.Conn != nil {
		if cached, err := rdx.RdxGet(menuCacheKey(branchID, category)); err == nil && cached != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(cached))
			return
		}
	}

	filter := bson.M{"branch_id": branchID}
	if category != "" && category != "all" {
		filter["category"] = category
	}
	cursor, err := db.FoodsCollection.Find(r.Context(), filter, options.Find().SetSort(bson.M{"id": 1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch menu")
		return
	}
	defer cursor.Close(r.Context())

	items := []models.Food{}
	if err := cursor.All(r.Context(), &items); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode menu")
		return
	}

	if rdx.Conn != nil {
		if raw, err := json.Marshal(items); err == nil {
			_ = rdx.SetWithExpiry(menuCacheKey(branchID, category), string(raw), 5*time.Minute)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

// GetFood returns one menu item by slug.
func GetFood(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var food models.Food
	err := db.FoodsCollection.FindOne(r.Context(), bson.M{"slug": ps.ByName("slug")}).Decode(&food)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Food not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch food")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, food)
}

// GetCategories lists the distinct categories present on a branch menu.
func GetCategories(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branchID, err := strconv.Atoi(ps.ByName("branchid"))
	if err != nil || branchID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid branch id")
		return
	}

	values, err := db.FoodsCollection.Distinct(r.Context(), "category", bson.M{"branch_id": branchID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	categories := []string{}
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			categories = append(categories, s)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, categories)
}

type foodPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url,omitempty"`
	Stock       int     `json:"stock,omitempty"`
}

// CreateFood adds a menu item to a branch. Branch admins may only touch
// their own branch.
func CreateFood(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branchID, err := strconv.Atoi(ps.ByName("branchid"))
	if err != nil || branchID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid branch id")
		return
	}
	if !callerBranch(r, branchID) {
		utils.RespondWithError(w, http.StatusForbidden, "Not your branch")
		return
	}

	var payload foodPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil ||
		payload.Name == "" || payload.Price < 0 || payload.Category == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name, price and category are required")
		return
	}

	id, err := db.NextSequence(r.Context(), "foods")
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to allocate food id")
		return
	}
	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	now := time.Now().UTC()
	food := models.Food{
		ID:          id,
		Name:        payload.Name,
		Slug:        fmt.Sprintf("%s-%d", utils.Slugify(payload.Name), id),
		Description: payload.Description,
		Price:       payload.Price,
		Category:    payload.Category,
		ImageURL:    payload.ImageURL,
		BranchID:    branchID,
		Stock:       payload.Stock,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := db.FoodsCollection.InsertOne(r.Context(), food); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create food")
		return
	}

	invalidateMenuCache(branchID)
	utils.RespondWithJSON(w, http.StatusCreated, food)
}

// UpdateFood edits a menu item.
func UpdateFood(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branchID, err := strconv.Atoi(ps.ByName("branchid"))
	if err != nil || branchID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid branch id")
		return
	}
	foodID, err := strconv.Atoi(ps.ByName("foodid"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid food id")
		return
	}
	if !callerBranch(r, branchID) {
		utils.RespondWithError(w, http.StatusForbidden, "Not your branch")
		return
	}

	var payload foodPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := bson.M{"updated_at": time.Now().UTC()}
	if payload.Name != "" {
		update["name"] = payload.Name
	}
	if payload.Description != "" {
		update["description"] = payload.Description
	}
	if payload.Price > 0 {
		update["price"] = payload.Price
	}
	if payload.Category != "" {
		update["category"] = payload.Category
	}
	if payload.ImageURL != "" {
		update["image_url"] = payload.ImageURL
	}
	if payload.Stock > 0 {
		update["stock"] = payload.Stock
	}

	res, err := db.FoodsCollection.UpdateOne(r.Context(),
		bson.M{"id": foodID, "branch_id": branchID}, bson.M{"$set": update})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update food")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Food not found")
		return
	}

	invalidateMenuCache(branchID)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// DeleteFood removes a menu item.
func DeleteFood(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	branchID, err := strconv.Atoi(ps.ByName("branchid"))
	if err != nil || branchID <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid branch id")
		return
	}
	foodID, err := strconv.Atoi(ps.ByName("foodid"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid food id")
		return
	}
	if !callerBranch(r, branchID) {
		utils.RespondWithError(w, http.StatusForbidden, "Not your branch")
		return
	}

	res, err := db.FoodsCollection.DeleteOne(r.Context(), bson.M{"id": foodID, "branch_id": branchID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete food")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Food not found")
		return
	}

	invalidateMenuCache(branchID)
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
