package investments

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/policy"
	"github.com/modousall221/iap/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayHandler initiates payment for a pending investment through the gateway.
// A successful initiation moves pending to payment_confirmed and attaches the
// payment reference in one compare-and-swap, so a racing second initiation
// loses cleanly.
func PayHandler(w http.ResponseWriter, r *http.Request) {
	investment, err := loadInvestment(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	if investment.Status != models.InvestmentPending {
		utils.WriteError(w, utils.InvalidStateError("payment can only be initiated for a pending investment"))
		return
	}
	if investment.PaymentReference != nil {
		utils.WriteError(w, utils.InvalidStateError("payment already initiated"))
		return
	}

	// gateway call happens before any mutation; a failure leaves the
	// investment untouched and retryable
	result, err := utils.ProcessPayment(r.Context(), utils.PaymentRequest{
		InvestmentID: investment.ID,
		Amount:       investment.Amount,
		Method:       investment.PaymentMethod,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	res := database.DB.Model(&models.Investment{}).
		Where("id = ? AND status = ? AND payment_reference IS NULL", investment.ID, models.InvestmentPending).
		Updates(map[string]interface{}{
			"payment_reference": result.Reference,
			"status":            models.InvestmentPaymentConfirmed,
		})
	if res.Error != nil {
		log.Printf("[investments] pay update error: %v", res.Error)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if res.RowsAffected == 0 {
		utils.WriteError(w, utils.InvalidStateError("payment already initiated"))
		return
	}

	investment.Status = models.InvestmentPaymentConfirmed
	investment.PaymentReference = &result.Reference
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Payment initiated",
		Data: map[string]interface{}{
			"investment":        investmentView(investment),
			"payment_reference": result.Reference,
			"redirect_url":      result.RedirectURL,
		},
	})
}

// ConfirmHandler verifies the gateway reference and credits the investment
// amount to the project exactly once.
func ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	investment, err := loadInvestment(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	switch investment.Status {
	case models.InvestmentPending:
		utils.WriteError(w, utils.InvalidStateError("payment has not been initiated"))
		return
	case models.InvestmentPaymentConfirmed:
	default:
		utils.WriteError(w, utils.InvalidStateError("investment cannot be confirmed from status "+string(investment.Status)))
		return
	}

	// only an out-of-band admin confirmation leaves payment_confirmed with
	// no reference; its funds are already applied, so re-confirming is a no-op
	if investment.PaymentReference == nil {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Investment already confirmed", Data: investmentView(investment)})
		return
	}

	verified, err := utils.VerifyPayment(r.Context(), *investment.PaymentReference)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if !verified {
		utils.WriteError(w, utils.UpstreamError("payment could not be verified"))
		return
	}

	confirmInvestment(w, investment)
}

type adminConfirmRequest struct {
	PaymentReference string `json:"payment_reference"`
}

// AdminConfirmHandler confirms an investment without gateway verification,
// for out-of-band payments (bank transfer receipts). The body may carry a
// manually supplied payment reference. Admin only.
func AdminConfirmHandler(w http.ResponseWriter, r *http.Request) {
	investment, err := loadInvestment(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin()); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	// body is optional for receipts that carry no reference
	var req adminConfirmRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.PaymentReference != "" && investment.PaymentReference == nil {
		res := database.DB.Model(&models.Investment{}).
			Where("id = ? AND payment_reference IS NULL", investment.ID).
			Update("payment_reference", req.PaymentReference)
		if res.Error != nil {
			if isDuplicateKey(res.Error) {
				utils.WriteError(w, utils.ValidationError("payment reference is already in use"))
				return
			}
			log.Printf("[investments] admin confirm reference error: %v", res.Error)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
			return
		}
		if res.RowsAffected > 0 {
			investment.PaymentReference = &req.PaymentReference
		}
	}

	confirmInvestment(w, investment)
}

// confirmInvestment credits the project and settles the investment on
// payment_confirmed. Re-confirming an investment whose funds were already
// applied is a no-op success; confirming from any later status is an
// InvalidState conflict.
func confirmInvestment(w http.ResponseWriter, investment *models.Investment) {
	switch investment.Status {
	case models.InvestmentPending, models.InvestmentPaymentConfirmed:
	default:
		utils.WriteError(w, utils.InvalidStateError("investment cannot be confirmed from status "+string(investment.Status)))
		return
	}

	applied, err := applyFundsOnce(database.DB, investment)
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			utils.WriteError(w, appErr)
			return
		}
		log.Printf("[investments] confirm error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	investment.Status = models.InvestmentPaymentConfirmed
	if !applied {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Investment already confirmed", Data: investmentView(investment)})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Payment confirmed", Data: investmentView(investment)})
}

// applyFundsOnce credits the investment amount to its project inside one
// transaction and reports whether this call did the crediting. The
// funding_entries unique index on investment_id is the idempotency guard: a
// duplicate insert means the amount was already applied, so the whole call
// degrades to a no-op. The project row lock orders concurrent confirmations
// so the cap check is race-free.
func applyFundsOnce(db *gorm.DB, investment *models.Investment) (bool, error) {
	applied := false
	err := db.Transaction(func(tx *gorm.DB) error {
		entry := models.FundingEntry{
			InvestmentID: investment.ID,
			ProjectID:    investment.ProjectID,
			Amount:       investment.Amount,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if isDuplicateKey(err) {
				return nil
			}
			return err
		}

		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", investment.ProjectID).First(&project).Error; err != nil {
			return err
		}
		if err := project.ApplyFunds(investment.Amount); err != nil {
			return utils.InvalidStateError("confirmation would exceed the funding target")
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
			Updates(map[string]interface{}{
				"raised_amount": project.RaisedAmount,
				"status":        project.Status,
			}).Error; err != nil {
			return err
		}

		// advances out-of-band confirmations that never went through the
		// gateway; gateway-initiated investments are already past pending
		res := tx.Model(&models.Investment{}).
			Where("id = ? AND status = ?", investment.ID, models.InvestmentPending).
			Update("status", models.InvestmentPaymentConfirmed)
		if res.Error != nil {
			return res.Error
		}
		applied = true
		return nil
	})
	return applied, err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}