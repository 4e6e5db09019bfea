package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sufra/db"
	"sufra/globals"
	"sufra/models"
	"sufra/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func toResponse(user models.User) models.ProfileResponse {
	return models.ProfileResponse{
		UserID:      user.UserID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		Address:     user.Address,
		Role:        user.Role,
		BranchID:    user.BranchID,
	}
}

// GetProfile returns the caller's own profile.
func GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	var user models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"userid": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch profile")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toResponse(user))
}

// UpdateProfile edits the caller's contact details. Role and branch are not
// editable here; see the admin package.
func UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, _ := r.Context().Value(globals.UserIDKey).(string)

	var payload struct {
		FullName    string `json:"full_name,omitempty"`
		PhoneNumber string `json:"phone_number,omitempty"`
		Address     string `json:"address,omitempty"`
		Email       string `json:"email,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := bson.M{"updated_at": time.Now()}
	if payload.FullName != "" {
		update["full_name"] = payload.FullName
	}
	if payload.PhoneNumber != "" {
		update["phone_number"] = payload.PhoneNumber
	}
	if payload.Address != "" {
		update["address"] = payload.Address
	}
	if payload.Email != "" {
		update["email"] = payload.Email
	}

	res := db.UserCollection.FindOneAndUpdate(r.Context(),
		bson.M{"userid": userID}, bson.M{"$set": update})
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	GetProfile(w, r, nil)
}
