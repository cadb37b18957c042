package output

import (
	"encoding/json"

	"github.com/folioai/chatgate/internal/chat"
)

// JSONFormatter renders reports as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatStatus renders a status report as JSON.
func (f *JSONFormatter) FormatStatus(report *chat.StatusReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

// FormatHistory renders a history page as JSON.
func (f *JSONFormatter) FormatHistory(page *chat.HistoryResponse) (string, error) {
	if page == nil {
		return "", nil
	}
	return f.marshal(page)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
