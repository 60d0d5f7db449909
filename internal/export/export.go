// Package export renders evaluation results as JSON, CSV, HTML and PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opensource-finance/dary/internal/batch"
	"github.com/opensource-finance/dary/internal/domain"
)

// Format is an export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// DateLayout is used for the Date column of single-result CSV exports.
const DateLayout = "2006-01-02 15:04:05"

// ParseFormat reads a format name. An empty name selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q: %w", s, domain.ErrInvalidInput)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Filename returns the download name for a result exported as f.
func (f Format) Filename(result *domain.GlobalScoreResult) string {
	return fmt.Sprintf("dary_score_%s.%s", result.EvaluatedAt.Format("20060102_150405"), f)
}

// Write renders result in format f.
func Write(w io.Writer, f Format, result *domain.GlobalScoreResult) error {
	switch f {
	case FormatJSON:
		return JSON(w, result)
	case FormatCSV:
		return CSV(w, result)
	case FormatHTML:
		return HTML(w, result)
	case FormatPDF:
		return PDF(w, result)
	default:
		return fmt.Errorf("unsupported export format %q: %w", f, domain.ErrInvalidInput)
	}
}

// JSON writes the result as indented JSON.
func JSON(w io.Writer, result *domain.GlobalScoreResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// CSV writes a header and one row: project, date, global score, tier and the
// four sub-scores.
func CSV(w io.Writer, result *domain.GlobalScoreResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Project", "Date", "Score", "Tier", "Financial", "Location", "Property", "Risk"}); err != nil {
		return err
	}

	s := result.SubScores
	row := []string{
		result.ProjectName,
		result.EvaluatedAt.Format(DateLayout),
		formatScore(result.ScoreGlobal),
		string(result.Tier),
		strconv.Itoa(s.Financial.Score),
		strconv.Itoa(s.Location.Score),
		strconv.Itoa(s.Property.Score),
		strconv.Itoa(s.Risk.Score),
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// BatchColumns is the header of the batch CSV export.
var BatchColumns = []string{
	"project", "scoreGlobal", "tier", "recommendation",
	"financial", "location", "property", "risk", "error",
}

// BatchCSV writes one row per outcome in input order. Failed rows keep their
// project name and carry the validation message in the error column.
func BatchCSV(w io.Writer, outcomes []batch.Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BatchColumns); err != nil {
		return err
	}

	for _, o := range outcomes {
		row := make([]string, len(BatchColumns))
		row[0] = o.Name
		if o.OK() {
			s := o.Result.SubScores
			row[1] = formatScore(o.Result.ScoreGlobal)
			row[2] = string(o.Result.Tier)
			row[3] = o.Result.Recommendation
			row[4] = strconv.Itoa(s.Financial.Score)
			row[5] = strconv.Itoa(s.Location.Score)
			row[6] = strconv.Itoa(s.Property.Score)
			row[7] = strconv.Itoa(s.Risk.Score)
		} else if o.Error != nil {
			row[8] = o.Error.Error()
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("row %d: %w", o.Row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
