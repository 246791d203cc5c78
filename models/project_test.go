package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestProjectTransitions(t *testing.T) {
	cases := []struct {
		from    ProjectStatus
		to      ProjectStatus
		allowed bool
	}{
		{ProjectDraft, ProjectSubmitted, true},
		{ProjectSubmitted, ProjectApproved, true},
		{ProjectSubmitted, ProjectDraft, true}, // rejection path
		{ProjectApproved, ProjectFunding, true},
		{ProjectFunding, ProjectFunded, true},
		{ProjectFunded, ProjectClosed, true},
		{ProjectDraft, ProjectApproved, false},
		{ProjectDraft, ProjectFunding, false},
		{ProjectApproved, ProjectSubmitted, false},
		{ProjectFunding, ProjectDraft, false},
		{ProjectClosed, ProjectFunding, false},
		{ProjectFunded, ProjectFunding, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestProjectTransitionMutatesOnlyWhenLegal(t *testing.T) {
	p := &Project{Status: ProjectDraft}
	require.NoError(t, p.Transition(ProjectSubmitted))
	require.Equal(t, ProjectSubmitted, p.Status)

	err := p.Transition(ProjectFunding)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, ProjectSubmitted, p.Status)
}

func TestApplyFundsAccumulatesExactDecimals(t *testing.T) {
	p := &Project{
		Status:       ProjectFunding,
		TargetAmount: dec("1000.00"),
		RaisedAmount: dec("0.00"),
	}
	// classic float trap: 0.1 + 0.2 must stay exact
	require.NoError(t, p.ApplyFunds(dec("0.10")))
	require.NoError(t, p.ApplyFunds(dec("0.20")))
	require.True(t, p.RaisedAmount.Equal(dec("0.30")), "got %s", p.RaisedAmount)
}

func TestApplyFundsRejectsBeyondTarget(t *testing.T) {
	p := &Project{
		Status:       ProjectFunding,
		TargetAmount: dec("100.00"),
		RaisedAmount: dec("90.00"),
	}
	err := p.ApplyFunds(dec("10.01"))
	require.ErrorIs(t, err, ErrFundingCapExceeded)
	require.True(t, p.RaisedAmount.Equal(dec("90.00")))
	require.Equal(t, ProjectFunding, p.Status)
}

func TestApplyFundsAtExactCapFlipsToFunded(t *testing.T) {
	p := &Project{
		Status:       ProjectFunding,
		TargetAmount: dec("100.00"),
		RaisedAmount: dec("90.00"),
	}
	require.NoError(t, p.ApplyFunds(dec("10.00")))
	require.True(t, p.RaisedAmount.Equal(dec("100.00")))
	require.Equal(t, ProjectFunded, p.Status)

	// a second application can never fire once funded
	err := p.ApplyFunds(dec("0.01"))
	require.ErrorIs(t, err, ErrFundingCapExceeded)
	require.Equal(t, ProjectFunded, p.Status)
}

func TestApplyFundsRejectsNonPositive(t *testing.T) {
	p := &Project{Status: ProjectFunding, TargetAmount: dec("100.00")}
	require.Error(t, p.ApplyFunds(dec("0")))
	require.Error(t, p.ApplyFunds(dec("-5")))
}

func TestRemainingCapacityAndPercentage(t *testing.T) {
	p := &Project{TargetAmount: dec("200.00"), RaisedAmount: dec("50.00")}
	require.True(t, p.RemainingCapacity().Equal(dec("150.00")))
	require.True(t, p.FundingPercentage().Equal(dec("25.00")), "got %s", p.FundingPercentage())

	empty := &Project{}
	require.True(t, empty.FundingPercentage().IsZero())
}

func TestAcceptingInvestments(t *testing.T) {
	now := time.Now()
	p := &Project{Status: ProjectFunding, Deadline: now.Add(time.Hour)}
	require.True(t, p.AcceptingInvestments(now))

	past := &Project{Status: ProjectFunding, Deadline: now.Add(-time.Hour)}
	require.False(t, past.AcceptingInvestments(now))

	draft := &Project{Status: ProjectDraft, Deadline: now.Add(time.Hour)}
	require.False(t, draft.AcceptingInvestments(now))
}

func TestValidContractType(t *testing.T) {
	require.True(t, ValidContractType(ContractMudarabah))
	require.True(t, ValidContractType(ContractMusharaka))
	require.True(t, ValidContractType(ContractConventionalLoan))
	require.False(t, ValidContractType("equity"))
}
