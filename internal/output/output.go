package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/folioai/chatgate/internal/chat"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders chat service reports.
type Formatter interface {
	FormatStatus(report *chat.StatusReport) (string, error)
	FormatHistory(page *chat.HistoryResponse) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// quotaRow is one line of the quota section shared by table and markdown output.
type quotaRow struct {
	Name      string
	Used      int
	Remaining int
	Limit     int
	Reset     string
}

func quotaRows(report *chat.StatusReport) []quotaRow {
	return []quotaRow{
		{"rate", report.RateLimit.Used, report.RateLimit.Remaining, report.RateLimit.Limit, report.RateLimit.ResetTime},
		{"question", report.QuestionLimit.Used, report.QuestionLimit.Remaining, report.QuestionLimit.Limit, report.QuestionLimit.ResetTime},
	}
}

func checkLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// preview flattens and shortens message content for a table cell.
func preview(content string, max int) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if max <= 0 || len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}
