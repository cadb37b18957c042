package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/folioai/chatgate/internal/chat"
)

// historyPreviewLen bounds the content column of the history table.
const historyPreviewLen = 80

// TableFormatter renders reports as ASCII tables.
type TableFormatter struct{}

// FormatStatus renders checks, quotas and admission counters as tables.
func (f *TableFormatter) FormatStatus(report *chat.StatusReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sections []string

	checks := table.NewWriter()
	checks.SetStyle(table.StyleRounded)
	checks.Style().Format.Footer = text.FormatDefault
	checks.SetTitle(fmt.Sprintf("Status: %s", report.Status))
	checks.AppendHeader(table.Row{"Check", "Result", "Detail"})
	threadDetail, assistantDetail := "", ""
	if report.ThreadInfo != nil {
		threadDetail = report.ThreadInfo.ID
	}
	if report.AssistantInfo != nil {
		assistantDetail = report.AssistantInfo.ID + " (" + report.AssistantInfo.Model + ")"
	}
	checks.AppendRow(table.Row{"api key", checkLabel(report.Checks.APIKey), ""})
	checks.AppendRow(table.Row{"thread", checkLabel(report.Checks.Thread), threadDetail})
	checks.AppendRow(table.Row{"assistant", checkLabel(report.Checks.Assistant), assistantDetail})
	if report.Message != "" {
		checks.AppendFooter(table.Row{"", "", report.Message})
	}
	sections = append(sections, checks.Render())

	quotas := table.NewWriter()
	quotas.SetStyle(table.StyleRounded)
	quotas.AppendHeader(table.Row{"Quota", "Used", "Remaining", "Limit", "Resets"})
	for _, q := range quotaRows(report) {
		quotas.AppendRow(table.Row{q.Name, q.Used, q.Remaining, q.Limit, q.Reset})
	}
	sections = append(sections, quotas.Render())

	if len(report.Admissions) > 0 || len(report.Limiters) > 0 {
		adm := table.NewWriter()
		adm.SetStyle(table.StyleRounded)
		adm.AppendHeader(table.Row{"Limiter", "Allowed", "Denied", "Keys", "Active"})
		names := map[string]struct{}{}
		for k := range report.Admissions {
			names[k] = struct{}{}
		}
		for k := range report.Limiters {
			names[k] = struct{}{}
		}
		for _, name := range sortedKeys(names) {
			c := report.Admissions[name]
			s := report.Limiters[name]
			adm.AppendRow(table.Row{name, c.Allowed, c.Denied, s.TotalKeys, s.ActiveKeys})
		}
		sections = append(sections, adm.Render())
	}

	if len(report.Errors) > 0 {
		sections = append(sections, "Errors:\n  "+strings.Join(report.Errors, "\n  "))
	}

	return strings.Join(sections, "\n"), nil
}

// FormatHistory renders one page of messages, oldest or newest first as fetched.
func (f *TableFormatter) FormatHistory(page *chat.HistoryResponse) (string, error) {
	if page == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Time", "Role", "Content", "ID"})
	for _, m := range page.Messages {
		t.AppendRow(table.Row{m.Timestamp, m.Role, preview(m.Content, historyPreviewLen), m.ID})
	}

	summary := fmt.Sprintf("%d messages", page.Count)
	if page.HasMore {
		summary += ", more available"
	}
	t.AppendFooter(table.Row{"", "", summary, ""})

	return t.Render(), nil
}
