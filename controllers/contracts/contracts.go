package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/middleware"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/policy"
	"github.com/modousall221/iap/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type GenerateContractRequest struct {
	InvestmentID string `json:"investment_id" validate:"required"`
}

// GenerateHandler creates the contract for a payment-confirmed investment:
// terms are snapshotted as immutable JSON, the PDF is rendered and uploaded,
// and the contract starts out active awaiting signatures. At most one
// contract may exist per investment.
func GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateContractRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	var investment models.Investment
	if err := database.DB.Where("id = ?", req.InvestmentID).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, utils.NotFoundError("investment not found"))
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	var project models.Project
	if err := database.DB.Where("id = ?", investment.ProjectID).First(&project).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(&investment), policy.OwnerOf(&project)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	if investment.Status != models.InvestmentPaymentConfirmed {
		utils.WriteError(w, utils.InvalidStateError("contract requires a payment-confirmed investment"))
		return
	}

	var existing models.Contract
	if err := database.DB.Where("investment_id = ?", investment.ID).First(&existing).Error; err == nil {
		utils.WriteError(w, utils.InvalidStateError("contract already exists for this investment"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	var investor, entrepreneur models.User
	if err := database.DB.Where("id = ?", investment.InvestorID).First(&investor).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if err := database.DB.Where("id = ?", project.OwnerID).First(&entrepreneur).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	terms := models.BuildContractTerms(&project, &investment, investor.Email, entrepreneur.Email, time.Now())
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	pdfBytes, err := utils.RenderContractPDF(terms)
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("failed to render contract document"))
		return
	}

	pdfKey := fmt.Sprintf("contracts/%s.pdf", investment.ID)
	pdfURL, err := utils.UploadBytes(r.Context(), pdfKey, pdfBytes, "application/pdf")
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("failed to store contract document"))
		return
	}

	contract := models.Contract{
		InvestmentID:   investment.ID,
		ContractType:   project.ContractType,
		TermsJSON:      string(termsJSON),
		ContractPdfURL: pdfURL,
		ContractPdfKey: pdfKey,
		Status:         models.ContractActive,
	}
	if err := database.DB.Create(&contract).Error; err != nil {
		// the unique index also guards against a racing second generation
		utils.WriteError(w, utils.InvalidStateError("contract already exists for this investment"))
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Contract generated", Data: contractView(&contract)})
}

// GetHandler returns a contract by id.
func GetHandler(w http.ResponseWriter, r *http.Request) {
	contract, investment, project, err := loadContractGraph(mux.Vars(r)["id"], "")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment), policy.OwnerOf(project)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Contract", Data: contractView(contract)})
}

// GetByInvestmentHandler returns the contract attached to an investment.
func GetByInvestmentHandler(w http.ResponseWriter, r *http.Request) {
	contract, investment, project, err := loadContractGraph("", mux.Vars(r)["investmentId"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment), policy.OwnerOf(project)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Contract", Data: contractView(contract)})
}

// DownloadHandler returns a short-lived presigned URL for the contract PDF.
func DownloadHandler(w http.ResponseWriter, r *http.Request) {
	contract, investment, project, err := loadContractGraph(mux.Vars(r)["id"], "")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment), policy.OwnerOf(project)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	if contract.ContractPdfKey == "" {
		utils.WriteError(w, utils.NotFoundError("contract document not available"))
		return
	}
	signedURL, err := utils.GenerateSignedURL(r.Context(), contract.ContractPdfKey, 15*time.Minute)
	if err != nil {
		utils.WriteError(w, utils.UpstreamError("failed to sign download URL"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Download URL",
		Data:    map[string]interface{}{"url": signedURL, "expires_in_seconds": 900},
	})
}

// loadContractGraph loads the contract plus its investment and project, by
// contract id or by investment id.
func loadContractGraph(contractID, investmentID string) (*models.Contract, *models.Investment, *models.Project, error) {
	var contract models.Contract
	q := database.DB
	if contractID != "" {
		q = q.Where("id = ?", contractID)
	} else {
		q = q.Where("investment_id = ?", investmentID)
	}
	if err := q.First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, utils.NotFoundError("contract not found")
		}
		return nil, nil, nil, err
	}

	var investment models.Investment
	if err := database.DB.Where("id = ?", contract.InvestmentID).First(&investment).Error; err != nil {
		return nil, nil, nil, err
	}
	var project models.Project
	if err := database.DB.Where("id = ?", investment.ProjectID).First(&project).Error; err != nil {
		return nil, nil, nil, err
	}
	return &contract, &investment, &project, nil
}

func contractView(c *models.Contract) map[string]interface{} {
	var terms map[string]interface{}
	_ = json.Unmarshal([]byte(c.TermsJSON), &terms)

	v := map[string]interface{}{
		"id":               c.ID,
		"investment_id":    c.InvestmentID,
		"contract_type":    c.ContractType,
		"status":           c.Status,
		"terms":            terms,
		"contract_pdf_url": c.ContractPdfURL,
		"fully_signed":     c.FullySigned(),
		"created_at":       c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.InvestorSignedAt != nil {
		v["investor_signed_at"] = c.InvestorSignedAt.UTC().Format(time.RFC3339)
	}
	if c.EntrepreneurSignedAt != nil {
		v["entrepreneur_signed_at"] = c.EntrepreneurSignedAt.UTC().Format(time.RFC3339)
	}
	if c.AdminSignedAt != nil {
		v["admin_signed_at"] = c.AdminSignedAt.UTC().Format(time.RFC3339)
	}
	if terms == nil && c.TermsJSON != "" {
		log.Printf("[contracts] terms JSON did not decode for %s", c.ID)
	}
	return v
}
