package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sufra/db"
	"sufra/models"
	"sufra/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetBranchAdmin promotes a user to branch admin of one branch. Super admin
// only. Demotion happens by assigning branch 0 with promote=false.
func SetBranchAdmin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload struct {
		UserID   string `json:"userid"`
		BranchID int    `json:"branch_id"`
		Promote  bool   `json:"promote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.UserID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "userid is required")
		return
	}

	if payload.Promote {
		if payload.BranchID <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "branch_id is required")
			return
		}
		count, err := db.BranchesCollection.CountDocuments(r.Context(), bson.M{"id": payload.BranchID})
		if err != nil || count == 0 {
			utils.RespondWithError(w, http.StatusNotFound, "Branch not found")
			return
		}
	}

	update := bson.M{
		"$set": bson.M{"updated_at": time.Now()},
	}
	if payload.Promote {
		update["$addToSet"] = bson.M{"role": models.RoleBranchAdmin}
		update["$set"].(bson.M)["branch_id"] = payload.BranchID
	} else {
		update["$pull"] = bson.M{"role": models.RoleBranchAdmin}
		update["$unset"] = bson.M{"branch_id": ""}
	}

	res, err := db.UserCollection.UpdateOne(r.Context(), bson.M{"userid": payload.UserID}, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true})
}

// ListUsers pages through registered users for the admin dashboard. Super
// admin only.
func ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		filter["role"] = role
	}

	users, err := utils.FindAndDecode[models.User](r.Context(), db.UserCollection, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithJSON(w, http.StatusOK, []models.ProfileResponse{})
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	out := make([]models.ProfileResponse, 0, len(users))
	for _, u := range users {
		out = append(out, models.ProfileResponse{
			UserID:      u.UserID,
			Username:    u.Username,
			Email:       u.Email,
			FullName:    u.FullName,
			PhoneNumber: u.PhoneNumber,
			Address:     u.Address,
			Role:        u.Role,
			BranchID:    u.BranchID,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}
