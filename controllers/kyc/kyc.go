package kyc

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/middleware"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/policy"
	"github.com/modousall221/iap/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const maxUploadBytes = 10 << 20 // 10 MiB

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// UploadHandler accepts a multipart KYC document, stores it in object storage
// and records it as pending review. Uploading a new document of a type that
// was rejected resets the user's KYC review.
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	id, authed := policy.FromRequest(r)
	if !authed {
		policy.Deny(w, policy.Unauthenticated)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.WriteError(w, utils.ValidationError("invalid multipart form"))
		return
	}

	docType := models.KYCDocumentType(r.FormValue("document_type"))
	if !models.ValidKYCDocumentType(docType) {
		utils.WriteError(w, utils.ValidationError("document_type must be id, rib, kbis or proof_of_address"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, utils.ValidationError("file is required"))
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		utils.WriteError(w, utils.ValidationError("file exceeds the 10 MiB limit"))
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		utils.WriteError(w, utils.ValidationError("file must be a PDF, PNG or JPEG"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil || int64(len(data)) > maxUploadBytes {
		utils.WriteError(w, utils.ValidationError("failed to read file"))
		return
	}

	objectKey := fmt.Sprintf("kyc/%s/%s-%s%s", id.UserID, docType, uuid.NewString(), ext)
	fileURL, err := utils.UploadBytes(r.Context(), objectKey, data, contentType)
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("failed to store document"))
		return
	}

	doc := models.KYCDocument{
		UserID:       id.UserID,
		DocumentType: docType,
		FileName:     header.Filename,
		FileURL:      fileURL,
		Status:       models.ReviewPending,
	}
	if err := database.DB.Create(&doc).Error; err != nil {
		log.Printf("[kyc] create document error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	// a fresh upload re-opens review for a previously rejected user
	_ = database.DB.Model(&models.User{}).
		Where("id = ? AND kyc_status = ?", id.UserID, models.ReviewRejected).
		Update("kyc_status", models.ReviewPending).Error

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Document uploaded", Data: documentView(&doc)})
}

// StatusHandler returns the caller's KYC state and documents.
func StatusHandler(w http.ResponseWriter, r *http.Request) {
	id, authed := policy.FromRequest(r)
	if !authed {
		policy.Deny(w, policy.Unauthenticated)
		return
	}

	var user models.User
	if err := database.DB.Where("id = ?", id.UserID).First(&user).Error; err != nil {
		utils.WriteError(w, utils.NotFoundError("user not found"))
		return
	}

	var docs []models.KYCDocument
	if err := database.DB.Where("user_id = ?", id.UserID).Order("created_at DESC").Find(&docs).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(docs))
	for i := range docs {
		views = append(views, documentView(&docs[i]))
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "KYC status",
		Data: map[string]interface{}{
			"kyc_status": user.KYCStatus,
			"aml_status": user.AMLStatus,
			"documents":  views,
		},
	})
}

// PendingHandler lists documents awaiting review. Admin only.
func PendingHandler(w http.ResponseWriter, r *http.Request) {
	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin()); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	var docs []models.KYCDocument
	if err := database.DB.Where("status = ?", models.ReviewPending).Order("created_at ASC").Find(&docs).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(docs))
	for i := range docs {
		views = append(views, documentView(&docs[i]))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Pending documents", Data: views})
}

// ApproveHandler approves a pending document. Admin only.
func ApproveHandler(w http.ResponseWriter, r *http.Request) {
	reviewHandler(w, r, models.ReviewApproved, nil)
}

type RejectDocumentRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RejectHandler rejects a pending document with a reason. Admin only.
func RejectHandler(w http.ResponseWriter, r *http.Request) {
	var req RejectDocumentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	reviewHandler(w, r, models.ReviewRejected, &req.Reason)
}

func reviewHandler(w http.ResponseWriter, r *http.Request, verdict models.ReviewStatus, reason *string) {
	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin()); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	var doc models.KYCDocument
	if err := database.DB.Where("id = ?", mux.Vars(r)["id"]).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, utils.NotFoundError("document not found"))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	if doc.Status != models.ReviewPending {
		utils.WriteError(w, utils.InvalidStateError("document has already been reviewed"))
		return
	}

	doc.Status = verdict
	doc.RejectionReason = reason
	if err := database.DB.Save(&doc).Error; err != nil {
		log.Printf("[kyc] review error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	if err := recomputeUserKYC(doc.UserID); err != nil {
		log.Printf("[kyc] recompute user status error: %v", err)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Document reviewed", Data: documentView(&doc)})
}

// recomputeUserKYC derives the user-level status from their documents: any
// rejection rejects the user, all-approved (with at least one document)
// approves them, anything else stays pending.
func recomputeUserKYC(userID string) error {
	var counts struct {
		Total    int64
		Approved int64
		Rejected int64
	}
	db := database.DB.Model(&models.KYCDocument{}).Where("user_id = ?", userID)
	if err := db.Count(&counts.Total).Error; err != nil {
		return err
	}
	if err := database.DB.Model(&models.KYCDocument{}).Where("user_id = ? AND status = ?", userID, models.ReviewApproved).Count(&counts.Approved).Error; err != nil {
		return err
	}
	if err := database.DB.Model(&models.KYCDocument{}).Where("user_id = ? AND status = ?", userID, models.ReviewRejected).Count(&counts.Rejected).Error; err != nil {
		return err
	}

	status := models.ReviewPending
	switch {
	case counts.Rejected > 0:
		status = models.ReviewRejected
	case counts.Total > 0 && counts.Approved == counts.Total:
		status = models.ReviewApproved
	}
	return database.DB.Model(&models.User{}).Where("id = ?", userID).Update("kyc_status", status).Error
}

func documentView(d *models.KYCDocument) map[string]interface{} {
	v := map[string]interface{}{
		"id":            d.ID,
		"user_id":       d.UserID,
		"document_type": d.DocumentType,
		"file_name":     d.FileName,
		"file_url":      d.FileURL,
		"status":        d.Status,
		"created_at":    d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.RejectionReason != nil {
		v["rejection_reason"] = *d.RejectionReason
	}
	return v
}
