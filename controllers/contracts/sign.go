package contracts

import (
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
	"gorm.io/gorm/clause"
)

type SignContractRequest struct {
	Party string `json:"party" validate:"required"`
}

// SignHandler records one party's signature on an active contract. Each party
// has its own authorization rule; admins may countersign for absent parties.
// Re-signing an already-signed party is a no-op success. When the third
// signature lands the contract flips to signed and the investment advances to
// contract_signed.
func SignHandler(w http.ResponseWriter, r *http.Request) {
	var req SignContractRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	party := models.SignerParty(req.Party)
	if !models.ValidSignerParty(party) {
		utils.WriteError(w, utils.ValidationError("party must be investor, entrepreneur or admin"))
		return
	}

	contract, investment, project, err := loadContractGraph(mux.Vars(r)["id"], "")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	var decision policy.Decision
	switch party {
	case models.SignerInvestor:
		decision = policy.Check(id, authed, policy.Admin(), policy.InvestorOf(investment))
	case models.SignerEntrepreneur:
		decision = policy.Check(id, authed, policy.Admin(), policy.OwnerOf(project))
	case models.SignerAdmin:
		decision = policy.Check(id, authed, policy.Admin())
	}
	if decision != policy.Allowed {
		policy.Deny(w, decision)
		return
	}

	if contract.Status != models.ContractActive && contract.Status != models.ContractSigned {
		utils.WriteError(w, utils.InvalidStateError("contract is not open for signing"))
		return
	}

	now := time.Now().UTC()
	txErr := database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Contract
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", contract.ID).First(&locked).Error; err != nil {
			return err
		}

		applied := locked.Sign(party, now)
		if applied || locked.Status != contract.Status {
			if err := tx.Model(&models.Contract{}).Where("id = ?", locked.ID).
				Updates(map[string]interface{}{
					"investor_signed_at":     locked.InvestorSignedAt,
					"entrepreneur_signed_at": locked.EntrepreneurSignedAt,
					"admin_signed_at":        locked.AdminSignedAt,
					"status":                 locked.Status,
				}).Error; err != nil {
				return err
			}
		}

		if locked.Status == models.ContractSigned {
			// CAS so only the transition payment_confirmed -> contract_signed
			// ever fires, no matter how many signatures race
			if err := tx.Model(&models.Investment{}).
				Where("id = ? AND status = ?", investment.ID, models.InvestmentPaymentConfirmed).
				Update("status", models.InvestmentContractSigned).Error; err != nil {
				return err
			}
		}

		*contract = locked
		return nil
	})
	if txErr != nil {
		log.Printf("[contracts] sign error: %v", txErr)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Signature recorded", Data: contractView(contract)})
}
