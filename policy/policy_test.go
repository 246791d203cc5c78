package policy

import (
	"testing"

	"github.com/modousall221/iap/models"

	"github.com/stretchr/testify/require"
)

func TestCheckUnauthenticatedWinsOverPredicates(t *testing.T) {
	admin := Identity{UserID: "u1", Role: models.RoleAdmin}
	require.Equal(t, Unauthenticated, Check(admin, false, Admin()))
}

func TestCheckAnyPredicateAllows(t *testing.T) {
	project := &models.Project{OwnerID: "owner-1"}
	owner := Identity{UserID: "owner-1", Role: models.RoleEntrepreneur}
	stranger := Identity{UserID: "other", Role: models.RoleEntrepreneur}
	admin := Identity{UserID: "a1", Role: models.RoleAdmin}

	require.Equal(t, Allowed, Check(owner, true, Admin(), OwnerOf(project)))
	require.Equal(t, Allowed, Check(admin, true, Admin(), OwnerOf(project)))
	require.Equal(t, Forbidden, Check(stranger, true, Admin(), OwnerOf(project)))
}

func TestInvestorOf(t *testing.T) {
	investment := &models.Investment{InvestorID: "inv-1"}
	investor := Identity{UserID: "inv-1", Role: models.RoleInvestor}
	other := Identity{UserID: "inv-2", Role: models.RoleInvestor}

	require.Equal(t, Allowed, Check(investor, true, InvestorOf(investment)))
	require.Equal(t, Forbidden, Check(other, true, InvestorOf(investment)))
	require.Equal(t, Forbidden, Check(other, true, InvestorOf(nil)))
}

func TestCheckNoPredicatesIsForbidden(t *testing.T) {
	id := Identity{UserID: "u1", Role: models.RoleInvestor}
	require.Equal(t, Forbidden, Check(id, true))
}

func TestIsAdmin(t *testing.T) {
	require.True(t, IsAdmin(Identity{Role: models.RoleAdmin}))
	require.False(t, IsAdmin(Identity{Role: models.RoleInvestor}))
	require.False(t, IsAdmin(Identity{Role: models.RoleEntrepreneur}))
}
