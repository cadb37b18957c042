package output

import (
	"fmt"
	"strings"

	"github.com/folioai/chatgate/internal/chat"
)

// MarkdownFormatter renders reports as markdown tables.
type MarkdownFormatter struct{}

// FormatStatus renders a status report as Markdown.
func (f *MarkdownFormatter) FormatStatus(report *chat.StatusReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Chat status: %s\n\n", escapeMarkdownCell(report.Status)))
	if report.Message != "" {
		sb.WriteString(escapeMarkdownCell(report.Message) + "\n\n")
	}

	sb.WriteString("| Check | Result |\n")
	sb.WriteString("|-------|--------|\n")
	sb.WriteString(fmt.Sprintf("| api key | %s |\n", checkLabel(report.Checks.APIKey)))
	sb.WriteString(fmt.Sprintf("| thread | %s |\n", checkLabel(report.Checks.Thread)))
	sb.WriteString(fmt.Sprintf("| assistant | %s |\n", checkLabel(report.Checks.Assistant)))

	sb.WriteString("\n| Quota | Used | Remaining | Limit | Resets |\n")
	sb.WriteString("|-------|------|-----------|-------|--------|\n")
	for _, q := range quotaRows(report) {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s |\n",
			q.Name, q.Used, q.Remaining, q.Limit, escapeMarkdownCell(q.Reset)))
	}

	if len(report.Errors) > 0 {
		sb.WriteString("\n**Errors**\n\n")
		for _, e := range report.Errors {
			sb.WriteString("- " + e + "\n")
		}
	}

	return sb.String(), nil
}

// FormatHistory renders a history page as Markdown.
func (f *MarkdownFormatter) FormatHistory(page *chat.HistoryResponse) (string, error) {
	if page == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Chat history (%d)\n\n", page.Count))
	sb.WriteString("| Time | Role | Content |\n")
	sb.WriteString("|------|------|---------|\n")
	for _, m := range page.Messages {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			escapeMarkdownCell(m.Timestamp),
			escapeMarkdownCell(m.Role),
			escapeMarkdownCell(preview(m.Content, 0)),
		))
	}
	if page.HasMore {
		sb.WriteString("\n_More messages available._\n")
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
