package branches

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"sufra/db"
	"sufra/models"
	"sufra/rdx"
	"sufra/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const listCacheKey = "branches:list"

func invalidateListCache() {
	if rdx.Conn != nil {
		if err := rdx.RdxDel(listCacheKey); err != nil {
			log.Println("branches: cache invalidation failed:", err)
		}
	}
}

// GetBranches lists every branch. The list changes rarely, so it is served
// from Redis when possible.
func GetBranches(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if rdx.Conn != nil {
		if cached, err := rdx.RdxGet(listCacheKey); err == nil && cached != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(cached))
			return
		}
	}

	branches, err := utils.FindAndDecode[models.Branch](r.Context(), db.BranchesCollection, bson.M{})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch branches")
		return
	}

	if rdx.Conn != nil {
		if raw, err := json.Marshal(branches); err == nil {
			_ = rdx.SetWithExpiry(listCacheKey, string(raw), 10*time.Minute)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, branches)
}

// GetBranch returns one branch, addressed by slug or numeric id.
func GetBranch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("slug")
	filter := bson.M{"slug": key}
	if id, err := strconv.Atoi(key); err == nil {
		filter = bson.M{"id": id}
	}

	var branch models.Branch
	err := db.BranchesCollection.FindOne(r.Context(), filter).Decode(&branch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Branch not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch branch")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, branch)
}

type branchPayload struct {
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
	IsDefault bool    `json:"is_default,omitempty"`
}

// uniqueSlug slugifies the name, appending the branch id when the plain slug
// is already taken.
func uniqueSlug(r *http.Request, name string, id int) (string, error) {
	slug := utils.Slugify(name)
	count, err := db.BranchesCollection.CountDocuments(r.Context(), bson.M{"slug": slug})
	if err != nil {
		return "", err
	}
	if count > 0 {
		slug = fmt.Sprintf("%s-%d", slug, id)
	}
	return slug, nil
}

// CreateBranch registers a new branch. Super admin only.
func CreateBranch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload branchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Branch name is required")
		return
	}

	id, err := db.NextSequence(r.Context(), "branches")
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to allocate branch id")
		return
	}
	slug, err := uniqueSlug(r, payload.Name, id)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create branch")
		return
	}

	now := time.Now().UTC()
	branch := models.Branch{
		ID:        id,
		Name:      payload.Name,
		Slug:      slug,
		Location:  payload.Location,
		Lat:       payload.Lat,
		Lng:       payload.Lng,
		ImageURL:  payload.ImageURL,
		IsDefault: payload.IsDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := db.BranchesCollection.InsertOne(r.Context(), branch); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create branch")
		return
	}

	invalidateListCache()
	utils.RespondWithJSON(w, http.StatusCreated, branch)
}

// UpdateBranch edits a branch's fields. Super admin only.
func UpdateBranch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var payload branchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := bson.M{"updated_at": time.Now().UTC()}
	if payload.Name != "" {
		update["name"] = payload.Name
	}
	if payload.Location != "" {
		update["location"] = payload.Location
	}
	if payload.Lat != 0 {
		update["lat"] = payload.Lat
	}
	if payload.Lng != 0 {
		update["lng"] = payload.Lng
	}
	if payload.ImageURL != "" {
		update["image_url"] = payload.ImageURL
	}

	res, err := db.BranchesCollection.UpdateOne(r.Context(),
		bson.M{"slug": ps.ByName("slug")}, bson.M{"$set": update})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update branch")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Branch not found")
		return
	}

	invalidateListCache()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// DeleteBranch removes a branch and its menu. Super admin only.
func DeleteBranch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var branch models.Branch
	err := db.BranchesCollection.FindOneAndDelete(r.Context(), bson.M{"slug": ps.ByName("slug")}).Decode(&branch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Branch not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete branch")
		return
	}

	if _, err := db.FoodsCollection.DeleteMany(r.Context(), bson.M{"branch_id": branch.ID}); err != nil {
		log.Println("branches: menu cleanup failed:", err)
	}

	invalidateListCache()
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}
