package auth

import (
	"net/http"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/utils"
)

// MeHandler returns the authenticated user's profile.
func MeHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var user models.User
	if err := database.DB.Where("id = ?", uid).First(&user).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("user not found"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Profile",
		Data:    PublicUser(&user),
	})
}
