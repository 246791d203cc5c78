package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/modousall221/iap/models"
)

// RenderContractPDF renders the terms snapshot into the contract document that
// all three parties sign. Layout mirrors the platform's standard template:
// header, contract details, party identification, terms, signature blocks.
func RenderContractPDF(terms models.ContractTerms) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, "PREDIKA INVESTMENT CONTRACT", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract Type: %s", strings.ToUpper(string(terms.ContractType))), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	line := func(format string, args ...interface{}) {
		pdf.CellFormat(0, 6, fmt.Sprintf(format, args...), "", 1, "L", false, 0, "")
	}

	section("CONTRACT DETAILS")
	line("Project: %s", terms.ProjectTitle)
	line("Investment Amount: %s FCFA", terms.InvestmentAmount.StringFixed(2))
	line("Expected Return: %s%%", terms.ExpectedReturn.StringFixed(2))
	line("Duration: %d months", terms.DurationMonths)
	line("Term: %s to %s", terms.StartDate, terms.EndDate)
	pdf.Ln(4)

	section("PARTIES")
	line("Investor: %s", terms.InvestorEmail)
	line("Entrepreneur: %s", terms.EntrepreneurEmail)
	pdf.Ln(4)

	section("TERMS AND CONDITIONS")
	for i, cond := range terms.Conditions {
		pdf.MultiCell(0, 6, fmt.Sprintf("%d. %s", i+1, cond), "", "L", false)
	}
	pdf.Ln(8)

	section("SIGNATURES")
	for _, party := range []string{"Investor", "Entrepreneur", "Platform Administrator"} {
		pdf.Ln(8)
		line("%s: ____________________________    Date: ______________", party)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
