package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/opensource-finance/dary/internal/domain"
)

// PDF renders a one-page A4 report of the result.
func PDF(w io.Writer, result *domain.GlobalScoreResult) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("DARY Score report", true)
	pdf.SetCreationDate(result.EvaluatedAt)
	pdf.AddPage()

	// Core fonts are cp1252; translate labels such as "m²".
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTextColor(11, 34, 57)
	pdf.SetFont("Arial", "B", 18)
	title := "DARY Score report"
	if result.ProjectName != "" {
		title += ": " + result.ProjectName
	}
	pdf.MultiCell(0, 9, tr(title), "", "L", false)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Date: "+result.EvaluatedAt.Format(DateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Global score: %s/100", formatScore(result.ScoreGlobal)), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr("Tier: "+string(result.Tier)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Recommendation: "+result.Recommendation), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Sub-score table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(11, 34, 57)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(40, 8, "Criterion", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Weight", "1", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 10)
	for _, c := range result.SubScores.All() {
		pdf.CellFormat(40, 7, string(c.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d/100", c.Score), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, strconv.FormatFloat(c.Weight, 'f', -1, 64), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	for _, c := range result.SubScores.All() {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, string(c.Category), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, d := range c.Details {
			pdf.MultiCell(0, 5, tr(d.Label+": "+d.Value), "", "L", false)
		}
		pdf.Ln(2)
	}

	if len(result.Warnings) > 0 || len(result.Flags) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Warnings", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, warning := range result.Warnings {
			pdf.MultiCell(0, 5, tr("- "+warning), "", "L", false)
		}
		for _, f := range result.Flags {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("- [%s] %s: %s", f.Severity, f.Name, f.Message)), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}
