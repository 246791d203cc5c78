package projects

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/modousall221/iap/database"
	"github.com/modousall221/iap/middleware"
	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/policy"
	"github.com/modousall221/iap/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Title           string  `json:"title" validate:"required"`
	Description     string  `json:"description" validate:"required"`
	LongDescription *string `json:"long_description,omitempty"`
	TargetAmount    string  `json:"target_amount" validate:"required"`
	Category        string  `json:"category" validate:"required"`
	Country         string  `json:"country" validate:"required"`
	ContractType    string  `json:"contract_type" validate:"required"`
	ShariaCompliant bool    `json:"sharia_compliant"`
	Deadline        string  `json:"deadline" validate:"required"`
	ExpectedReturn  string  `json:"expected_return"`
	RiskLevel       string  `json:"risk_level"`
}

// CreateHandler creates a draft project owned by the caller. Only
// entrepreneurs and admins may create projects.
func CreateHandler(w http.ResponseWriter, r *http.Request) {
	id, authed := policy.FromRequest(r)
	if !authed {
		policy.Deny(w, policy.Unauthenticated)
		return
	}
	if id.Role != models.RoleEntrepreneur && id.Role != models.RoleAdmin {
		policy.Deny(w, policy.Forbidden)
		return
	}

	var req CreateProjectRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil || !target.IsPositive() {
		utils.WriteError(w, utils.ValidationError("target_amount must be a positive decimal"))
		return
	}

	contractType := models.ContractType(req.ContractType)
	if !models.ValidContractType(contractType) {
		utils.WriteError(w, utils.ValidationError("contract_type must be mudarabah, musharaka or conventional_loan"))
		return
	}
	// sharia contract types imply compliance; a conventional loan can never claim it
	if contractType == models.ContractConventionalLoan && req.ShariaCompliant {
		utils.WriteError(w, utils.ValidationError("conventional_loan cannot be sharia compliant"))
		return
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		utils.WriteError(w, utils.ValidationError("deadline must be RFC3339"))
		return
	}
	if !deadline.After(time.Now()) {
		utils.WriteError(w, utils.ValidationError("deadline must be in the future"))
		return
	}

	expectedReturn := decimal.Zero
	if req.ExpectedReturn != "" {
		expectedReturn, err = decimal.NewFromString(req.ExpectedReturn)
		if err != nil || expectedReturn.IsNegative() || expectedReturn.GreaterThan(decimal.NewFromInt(100)) {
			utils.WriteError(w, utils.ValidationError("expected_return must be between 0 and 100"))
			return
		}
	}

	risk := models.RiskMedium
	if req.RiskLevel != "" {
		risk = models.RiskLevel(req.RiskLevel)
		if risk != models.RiskLow && risk != models.RiskMedium && risk != models.RiskHigh {
			utils.WriteError(w, utils.ValidationError("risk_level must be low, medium or high"))
			return
		}
	}

	project := models.Project{
		OwnerID:         id.UserID,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		LongDescription: req.LongDescription,
		TargetAmount:    target,
		RaisedAmount:    decimal.Zero,
		Category:        strings.TrimSpace(req.Category),
		Country:         strings.TrimSpace(req.Country),
		ContractType:    contractType,
		ShariaCompliant: req.ShariaCompliant || contractType != models.ContractConventionalLoan,
		Status:          models.ProjectDraft,
		Deadline:        deadline,
		ExpectedReturn:  expectedReturn,
		RiskLevel:       risk,
	}

	if err := database.DB.Create(&project).Error; err != nil {
		log.Printf("[projects] create error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Project created", Data: projectView(&project)})
}

// ListHandler returns projects. Public callers see only fundable statuses;
// owners additionally see their own drafts, admins see everything.
func ListHandler(w http.ResponseWriter, r *http.Request) {
	q := database.DB.Model(&models.Project{})

	id, authed := policy.FromRequest(r)
	switch {
	case authed && policy.IsAdmin(id):
		// no visibility restriction
	case authed:
		q = q.Where("status IN ? OR owner_id = ?", []models.ProjectStatus{models.ProjectFunding, models.ProjectFunded, models.ProjectClosed}, id.UserID)
	default:
		q = q.Where("status IN ?", []models.ProjectStatus{models.ProjectFunding, models.ProjectFunded, models.ProjectClosed})
	}

	if v := r.URL.Query().Get("status"); v != "" {
		q = q.Where("status = ?", v)
	}
	if v := r.URL.Query().Get("category"); v != "" {
		q = q.Where("category = ?", v)
	}
	if v := r.URL.Query().Get("country"); v != "" {
		q = q.Where("country = ?", v)
	}
	if v := r.URL.Query().Get("contract_type"); v != "" {
		q = q.Where("contract_type = ?", v)
	}
	if v := r.URL.Query().Get("sharia_compliant"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			q = q.Where("sharia_compliant = ?", b)
		}
	}

	page, perPage := pagination(r)
	var total int64
	q.Count(&total)

	var projects []models.Project
	if err := q.Order("created_at DESC").Limit(perPage).Offset((page - 1) * perPage).Find(&projects).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	views := make([]map[string]interface{}, 0, len(projects))
	for i := range projects {
		views = append(views, projectView(&projects[i]))
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Projects",
		Data:    utils.PageData("projects", views, total, page, perPage),
	})
}

// GetHandler returns a single project. Draft and submitted projects are
// visible only to their owner and admins.
func GetHandler(w http.ResponseWriter, r *http.Request) {
	project, err := loadProject(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if project.Status == models.ProjectDraft || project.Status == models.ProjectSubmitted {
		id, authed := policy.FromRequest(r)
		if d := policy.Check(id, authed, policy.Admin(), policy.OwnerOf(project)); d != policy.Allowed {
			// hide existence of unpublished projects from outsiders
			utils.WriteError(w, utils.NotFoundError("project not found"))
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Project", Data: projectView(project)})
}

type UpdateProjectRequest struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	LongDescription *string `json:"long_description,omitempty"`
	TargetAmount    *string `json:"target_amount,omitempty"`
	Category        *string `json:"category,omitempty"`
	Country         *string `json:"country,omitempty"`
	Deadline        *string `json:"deadline,omitempty"`
	ExpectedReturn  *string `json:"expected_return,omitempty"`
	RiskLevel       *string `json:"risk_level,omitempty"`
}

// UpdateHandler edits a draft project. Only drafts are editable, and only by
// the owner or an admin.
func UpdateHandler(w http.ResponseWriter, r *http.Request) {
	project, err := loadProject(mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	id, authed := policy.FromRequest(r)
	if d := policy.Check(id, authed, policy.Admin(), policy.OwnerOf(project)); d != policy.Allowed {
		policy.Deny(w, d)
		return
	}

	if project.Status != models.ProjectDraft {
		utils.WriteError(w, utils.InvalidStateError("only draft projects can be updated"))
		return
	}

	var req UpdateProjectRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	if req.Title != nil {
		project.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.LongDescription != nil {
		project.LongDescription = req.LongDescription
	}
	if req.TargetAmount != nil {
		target, err := decimal.NewFromString(*req.TargetAmount)
		if err != nil || !target.IsPositive() {
			utils.WriteError(w, utils.ValidationError("target_amount must be a positive decimal"))
			return
		}
		project.TargetAmount = target
	}
	if req.Category != nil {
		project.Category = strings.TrimSpace(*req.Category)
	}
	if req.Country != nil {
		project.Country = strings.TrimSpace(*req.Country)
	}
	if req.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil || !deadline.After(time.Now()) {
			utils.WriteError(w, utils.ValidationError("deadline must be RFC3339 and in the future"))
			return
		}
		project.Deadline = deadline
	}
	if req.ExpectedReturn != nil {
		er, err := decimal.NewFromString(*req.ExpectedReturn)
		if err != nil || er.IsNegative() || er.GreaterThan(decimal.NewFromInt(100)) {
			utils.WriteError(w, utils.ValidationError("expected_return must be between 0 and 100"))
			return
		}
		project.ExpectedReturn = er
	}
	if req.RiskLevel != nil {
		risk := models.RiskLevel(*req.RiskLevel)
		if risk != models.RiskLow && risk != models.RiskMedium && risk != models.RiskHigh {
			utils.WriteError(w, utils.ValidationError("risk_level must be low, medium or high"))
			return
		}
		project.RiskLevel = risk
	}

	if err := database.DB.Save(project).Error; err != nil {
		log.Printf("[projects] update error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Project updated", Data: projectView(project)})
}

func loadProject(id string) (*models.Project, error) {
	var project models.Project
	if err := database.DB.Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("project not found")
		}
		return nil, err
	}
	return &project, nil
}

func projectView(p *models.Project) map[string]interface{} {
	return map[string]interface{}{
		"id":                 p.ID,
		"owner_id":           p.OwnerID,
		"title":              p.Title,
		"description":        p.Description,
		"long_description":   p.LongDescription,
		"target_amount":      p.TargetAmount,
		"raised_amount":      p.RaisedAmount,
		"funding_percentage": p.FundingPercentage(),
		"category":           p.Category,
		"country":            p.Country,
		"contract_type":      p.ContractType,
		"sharia_compliant":   p.ShariaCompliant,
		"status":             p.Status,
		"deadline":           p.Deadline.UTC().Format(time.RFC3339),
		"expected_return":    p.ExpectedReturn,
		"risk_level":         p.RiskLevel,
		"created_at":         p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func pagination(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 && v <= 100 {
		perPage = v
	}
	return page, perPage
}
