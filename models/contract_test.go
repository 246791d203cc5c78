package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContractSignIdempotent(t *testing.T) {
	c := &Contract{Status: ContractActive}
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	require.True(t, c.Sign(SignerInvestor, first))
	require.Equal(t, first, *c.InvestorSignedAt)

	// re-signing the same party is a no-op and keeps the first timestamp
	require.False(t, c.Sign(SignerInvestor, later))
	require.Equal(t, first, *c.InvestorSignedAt)
}

func TestContractSignedOnlyWithAllThreeSignatures(t *testing.T) {
	c := &Contract{Status: ContractActive}
	now := time.Now()

	c.Sign(SignerInvestor, now)
	require.False(t, c.FullySigned())
	require.Equal(t, ContractActive, c.Status)

	c.Sign(SignerEntrepreneur, now)
	require.False(t, c.FullySigned())
	require.Equal(t, ContractActive, c.Status)

	c.Sign(SignerAdmin, now)
	require.True(t, c.FullySigned())
	require.Equal(t, ContractSigned, c.Status)
}

func TestContractSignedNotRecomputedOutsideActive(t *testing.T) {
	now := time.Now()
	c := &Contract{Status: ContractCancelled}
	c.Sign(SignerInvestor, now)
	c.Sign(SignerEntrepreneur, now)
	c.Sign(SignerAdmin, now)
	require.True(t, c.FullySigned())
	require.Equal(t, ContractCancelled, c.Status)
}

func TestContractTransitions(t *testing.T) {
	cases := []struct {
		from    ContractStatus
		to      ContractStatus
		allowed bool
	}{
		{ContractDraft, ContractActive, true},
		{ContractDraft, ContractCancelled, true},
		{ContractActive, ContractSigned, true},
		{ContractActive, ContractCancelled, true},
		{ContractSigned, ContractCompleted, true},
		{ContractSigned, ContractCancelled, true},
		{ContractDraft, ContractSigned, false},
		{ContractActive, ContractCompleted, false},
		{ContractCompleted, ContractActive, false},
		{ContractCancelled, ContractActive, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBuildContractTerms(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	project := &Project{
		Title:          "Solar Farm",
		ContractType:   ContractMudarabah,
		ExpectedReturn: dec("8.50"),
	}
	investment := &Investment{Amount: dec("2500.00")}

	terms := BuildContractTerms(project, investment, "inv@example.com", "ent@example.com", now)

	require.Equal(t, "Solar Farm", terms.ProjectTitle)
	require.Equal(t, "inv@example.com", terms.InvestorEmail)
	require.Equal(t, "ent@example.com", terms.EntrepreneurEmail)
	require.True(t, terms.InvestmentAmount.Equal(dec("2500.00")))
	require.Equal(t, ContractMudarabah, terms.ContractType)
	require.True(t, terms.ProfitShare.Equal(dec("8.50")))
	require.Equal(t, 12, terms.DurationMonths)
	require.Equal(t, "2025-06-15", terms.StartDate)
	require.Equal(t, "2026-06-15", terms.EndDate)
	require.Len(t, terms.Conditions, 3)
}

func TestValidSignerParty(t *testing.T) {
	require.True(t, ValidSignerParty(SignerInvestor))
	require.True(t, ValidSignerParty(SignerEntrepreneur))
	require.True(t, ValidSignerParty(SignerAdmin))
	require.False(t, ValidSignerParty("notary"))
}
