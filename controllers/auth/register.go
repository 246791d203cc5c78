package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/middleware"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/utils"

	"gorm.io/gorm"
)

type RegisterRequest struct {
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,pwdmin"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	Phone                string `json:"phone"`
	Role                 string `json:"role"`
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleInvestor
	}
	// admin accounts are provisioned out of band, never self-registered
	if role != models.RoleInvestor && role != models.RoleEntrepreneur {
		utils.WriteError(w, utils.ValidationError("role must be investor or entrepreneur"))
		return
	}

	db := database.DB

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Email is already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking email: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	newUser := models.User{
		Email:     req.Email,
		Role:      role,
		KYCStatus: models.ReviewPending,
		AMLStatus: models.ReviewPending,
		IsActive:  true,
	}
	if req.Phone != "" {
		newUser.Phone = &req.Phone
	}
	if err := newUser.SetPassword(req.Password); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	if err := db.Create(&newUser).Error; err != nil {
		log.Printf("[register] DB Create user error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Registration failed, please try again"})
		return
	}

	tokenExpiry := 15 * time.Minute
	exp := time.Now().Add(tokenExpiry)

	accessToken, err := utils.GenerateAccessTokenWithExpiry(newUser.ID, newUser.Role, tokenExpiry)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create token"})
		return
	}
	refreshJTI, err := utils.GenerateRefreshToken(newUser.ID)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to store refresh token"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Registration successful",
		Data: map[string]interface{}{
			"access_token":  accessToken,
			"access_expire": exp.UTC().Format(time.RFC3339),
			"refresh_token": refreshJTI,
			"user":          PublicUser(&newUser),
		},
	})
}

// PublicUser maps a user to its API shape without the password hash.
func PublicUser(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID,
		"email":      u.Email,
		"phone":      utils.GetStringValue(u.Phone),
		"role":       u.Role,
		"kyc_status": u.KYCStatus,
		"aml_status": u.AMLStatus,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
