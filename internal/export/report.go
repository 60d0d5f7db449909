package export

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/opensource-finance/dary/internal/domain"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const pageHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Arial, sans-serif; padding: 20px; }
h1 { color: #0B2239; }
h2 { color: #3CE58E; }
table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
th, td { padding: 10px; border: 1px solid #ddd; text-align: left; }
th { background: #0B2239; color: white; }
</style>
</head>
<body>
`

const pageFoot = `</body>
</html>
`

// Markdown renders the result as a Markdown report.
func Markdown(result *domain.GlobalScoreResult) string {
	var b strings.Builder

	title := "DARY Score report"
	if result.ProjectName != "" {
		title += ": " + escapeMarkdown(result.ProjectName)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Date: %s\n\n", result.EvaluatedAt.Format(DateLayout))
	fmt.Fprintf(&b, "## Global score: %s/100\n\n", formatScore(result.ScoreGlobal))
	fmt.Fprintf(&b, "- Tier: **%s**\n", result.Tier)
	fmt.Fprintf(&b, "- Recommendation: %s\n\n", result.Recommendation)

	b.WriteString("## Detailed analysis\n\n")
	b.WriteString("| Criterion | Score | Weight | Details |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, c := range result.SubScores.All() {
		fmt.Fprintf(&b, "| %s | %d/100 | %s | %s |\n",
			c.Category,
			c.Score,
			strconv.FormatFloat(c.Weight, 'f', -1, 64),
			escapeMarkdown(joinDetails(c.Details)),
		)
	}
	b.WriteString("\n")

	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(w))
		}
		b.WriteString("\n")
	}

	if len(result.Flags) > 0 {
		b.WriteString("## Screening flags\n\n")
		for _, f := range result.Flags {
			fmt.Fprintf(&b, "- **%s** %s: %s\n", f.Severity, escapeMarkdown(f.Name), escapeMarkdown(f.Message))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders the Markdown report to a standalone HTML page.
func HTML(w io.Writer, result *domain.GlobalScoreResult) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(result)), &body); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	title := "DARY Score report"
	if result.ProjectName != "" {
		title += " - " + result.ProjectName
	}

	if _, err := fmt.Fprintf(w, pageHead, html.EscapeString(title)); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	_, err := io.WriteString(w, pageFoot)
	return err
}

func joinDetails(details domain.Details) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		parts = append(parts, d.Label+": "+d.Value)
	}
	return strings.Join(parts, ", ")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
