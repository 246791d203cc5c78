// Package policy centralizes the role and ownership checks gating every
// mutating operation. Handlers ask for a Decision instead of inspecting
// roles ad hoc, so unauthenticated and forbidden outcomes stay distinct
// everywhere: an authenticated caller without rights gets Forbidden, never
// NotFound.
package policy

import (
	"net/http"

	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/utils"
)

type Decision int

const (
	Unauthenticated Decision = iota
	Forbidden
	Allowed
)

// Identity is the authenticated caller as established by the auth middleware.
type Identity struct {
	UserID string
	Role   models.Role
}

// FromRequest extracts the caller identity injected by middleware.AuthMiddleware.
// ok is false when the request carries no identity.
func FromRequest(r *http.Request) (Identity, bool) {
	id, okID := r.Context().Value(utils.UserIDKey).(string)
	role, okRole := r.Context().Value(utils.UserRoleKey).(string)
	if !okID || id == "" {
		return Identity{}, false
	}
	if !okRole {
		role = string(models.RoleInvestor)
	}
	return Identity{UserID: id, Role: models.Role(role)}, true
}

func IsAdmin(id Identity) bool {
	return id.Role == models.RoleAdmin
}

func IsOwner(id Identity, project *models.Project) bool {
	return project != nil && project.OwnerID == id.UserID
}

func IsInvestor(id Identity, investment *models.Investment) bool {
	return investment != nil && investment.InvestorID == id.UserID
}

// Predicate is a single capability check against an identity.
type Predicate func(Identity) bool

// Admin allows only the admin role.
func Admin() Predicate {
	return IsAdmin
}

// OwnerOf allows the project owner.
func OwnerOf(project *models.Project) Predicate {
	return func(id Identity) bool { return IsOwner(id, project) }
}

// InvestorOf allows the investment's investor.
func InvestorOf(investment *models.Investment) Predicate {
	return func(id Identity) bool { return IsInvestor(id, investment) }
}

// Check evaluates the predicates against the caller. authenticated=false
// yields Unauthenticated regardless of predicates; otherwise the caller is
// Allowed when any predicate passes.
func Check(id Identity, authenticated bool, anyOf ...Predicate) Decision {
	if !authenticated {
		return Unauthenticated
	}
	for _, allow := range anyOf {
		if allow(id) {
			return Allowed
		}
	}
	return Forbidden
}

// Deny writes the error response for a non-Allowed decision.
func Deny(w http.ResponseWriter, d Decision) {
	switch d {
	case Unauthenticated:
		utils.WriteError(w, utils.UnauthenticatedError("not authenticated"))
	default:
		utils.WriteError(w, utils.ForbiddenError("insufficient permissions"))
	}
}
