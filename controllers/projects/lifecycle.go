package projects

import (
	"errors"
	"log"
	"net/http"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/policy"
	"github.com/modousall221/iap/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmitHandler moves a draft project to submitted for admin review. Owner only.
func SubmitHandler(w http.ResponseWriter, r *http.Request) {
	transitionHandler(w, r, models.ProjectSubmitted, "Project submitted for review", false)
}

// ApproveHandler moves a submitted project to approved. Admin only.
func ApproveHandler(w http.ResponseWriter, r *http.Request) {
	transitionHandler(w, r, models.ProjectApproved, "Project approved", true)
}

// RejectHandler returns a submitted project to draft so the owner can revise
// and resubmit. Admin only.
func RejectHandler(w http.ResponseWriter, r *http.Request) {
	transitionHandler(w, r, models.ProjectDraft, "Project rejected, returned to draft", true)
}

// LaunchHandler opens an approved project for funding. Admin only.
func LaunchHandler(w http.ResponseWriter, r *http.Request) {
	transitionHandler(w, r, models.ProjectFunding, "Project launched for funding", true)
}

// CloseHandler closes a funded project after disbursement. Admin only.
func CloseHandler(w http.ResponseWriter, r *http.Request) {
	transitionHandler(w, r, models.ProjectClosed, "Project closed", true)
}

// transitionHandler performs a single lifecycle move under a row lock so
// concurrent requests cannot double-apply a transition.
func transitionHandler(w http.ResponseWriter, r *http.Request, to models.ProjectStatus, okMsg string, adminOnly bool) {
	projectID := mux.Vars(r)["id"]

	project, loadErr := loadProject(projectID)
	if loadErr != nil {
		utils.WriteError(w, loadErr)
		return
	}

	id, authed := policy.FromRequest(r)
	var decision policy.Decision
	if adminOnly {
		decision = policy.Check(id, authed, policy.Admin())
	} else {
		decision = policy.Check(id, authed, policy.Admin(), policy.OwnerOf(project))
	}
	if decision != policy.Allowed {
		policy.Deny(w, decision)
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", projectID).First(&locked).Error; err != nil {
			return err
		}
		if err := locked.Transition(to); err != nil {
			return err
		}
		if err := tx.Model(&models.Project{}).Where("id = ?", projectID).
			Update("status", locked.Status).Error; err != nil {
			return err
		}
		*project = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			utils.WriteError(w, utils.InvalidStateError("transition not allowed from status "+string(project.Status)))
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteError(w, utils.NotFoundError("project not found"))
			return
		}
		log.Printf("[projects] transition to %s error: %v", to, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: okMsg, Data: projectView(project)})
}
