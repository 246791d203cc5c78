package investments

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/middleware"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/policy"
	"github.com/modousall221/iap/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateInvestmentRequest struct {
	ProjectID     string `json:"project_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	PaymentMethod string `json:"payment_method"`
}

// CreateHandler creates a pending investment in a funding project. The cap
// check here is optimistic: pending investments do not reserve capacity, so
// the strict check happens again at confirmation time.
func CreateHandler(w http.ResponseWriter, r *http.Request) {
	id, authed := policy.FromRequest(r)
	if !authed {
		policy.Deny(w, policy.Unauthenticated)
		return
	}
	if id.Role != models.RoleInvestor && id.Role != models.RoleAdmin {
		policy.Deny(w, policy.Forbidden)
		return
	}

	var req CreateInvestmentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		utils.WriteError(w, utils.ValidationError("amount must be a positive decimal"))
		return
	}
	if req.PaymentMethod != "" && !models.ValidPaymentMethod(req.PaymentMethod) {
		utils.WriteError(w, utils.ValidationError("payment_method must be mobile_money, bank_transfer or card"))
		return
	}

	var investment models.Investment
	txErr := database.DB.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", req.ProjectID).First(&project).Error; err != nil {
			return err
		}
		if !project.AcceptingInvestments(time.Now()) {
			return utils.InvalidStateError("project is not accepting investments")
		}
		// amount exactly equal to remaining capacity is allowed
		if amount.GreaterThan(project.RemainingCapacity()) {
			return utils.InvalidStateError("amount exceeds remaining funding capacity")
		}
		investment = models.Investment{
			ProjectID:     project.ID,
			InvestorID:    id.UserID,
			Amount:        amount,
			Status:        models.InvestmentPending,
			PaymentMethod: req.PaymentMethod,
		}
		return tx.Create(&investment).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			utils.WriteError(w, utils.NotFoundError("project not found"))
			return
		}
		var appErr *utils.AppError
		if errors.As(txErr, &appErr) {
			utils.WriteError(w, appErr)
			return
		}
		log.Printf("[investments] create error: %v", txErr)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Investment created", Data: investmentView(&investment)})
}

// ListHandler returns the caller's investments, or all of them for admins.
func ListHandler(w http.ResponseWriter, r *http.Request) {
	id, authed := policy.FromRequest(r)
	if !authed {
		policy.Deny(w, policy.Unauthenticated)
		return
	}

	q := database.DB.Model(&models.Investment{}).Preload("Project")
	if !policy.IsAdmin(id) {
		q = q.Where("investor_id = ?", id.UserID)
	}
	if v := r.URL.Query().Get("status"); v != "" {
		q = q.Where("status = ?", v)
	}
	if v := r.URL.Query().Get("project_id"); v != "" {
		q = q.Where("project_id = ?", v)
	}

	var investments []models.Investment
	if err := q.Order("created_at DESC").Find(&investments).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(investments))
	for i := range investments {
		views = append(views, investmentView(&investments[i]))
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Investments", Data: views})
}

// GetHandler returns a single investment, visible to the investor, the
// project owner and admins.
func GetHandler(w http.ResponseWriter, r *http.Request) {
	investment, err := loadInvestment(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	project, _ := loadProjectForInvestment(investment)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment), policy.OwnerOf(project)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Investment", Data: investmentView(investment)})
}

func loadInvestment(id string) (*models.Investment, error) {
	var investment models.Investment
	if err := database.DB.Where("id = ?", id).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("investment not found")
		}
		return nil, err
	}
	return &investment, nil
}

func loadProjectForInvestment(inv *models.Investment) (*models.Project, error) {
	var project models.Project
	if err := database.DB.Where("id = ?", inv.ProjectID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func investmentView(i *models.Investment) map[string]interface{} {
	v := map[string]interface{}{
		"id":             i.ID,
		"project_id":     i.ProjectID,
		"investor_id":    i.InvestorID,
		"amount":         i.Amount,
		"status":         i.Status,
		"payment_method": i.PaymentMethod,
		"created_at":     i.CreatedAt.UTC().Format(time.RFC3339),
	}
	if i.PaymentReference != nil {
		v["payment_reference"] = *i.PaymentReference
	}
	if i.Project != nil {
		v["project"] = map[string]interface{}{
			"id":            i.Project.ID,
			"title":         i.Project.Title,
			"status":        i.Project.Status,
			"contract_type": i.Project.ContractType,
		}
	}
	return v
}
