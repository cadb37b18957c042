package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/folioai/chatgate/internal/chat"
	"github.com/folioai/chatgate/internal/output"
)

var (
	historyOutput string
	historyURL    string
	historyLimit  int
	historyOrder  string
	historyBefore string
	historyAfter  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent messages of the shared thread",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(historyOutput)
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(historyLimit))
		if o := strings.TrimSpace(historyOrder); o != "" {
			q.Set("order", o)
		}
		if b := strings.TrimSpace(historyBefore); b != "" {
			q.Set("before", b)
		}
		if a := strings.TrimSpace(historyAfter); a != "" {
			q.Set("after", a)
		}

		var page chat.HistoryResponse
		if _, err := getJSON(cmd.Context(), serverURL(historyURL, cmd.Flags().Changed("url")), "/api/chat/history", q, &page, http.StatusOK); err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatHistory(&page)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	historyCmd.Flags().StringVar(&historyURL, "url", defaultServerURL, "base URL of the chatgate server")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", chat.DefaultHistoryLimit, "number of messages (1-100)")
	historyCmd.Flags().StringVar(&historyOrder, "order", "desc", "sort order: asc|desc")
	historyCmd.Flags().StringVar(&historyBefore, "before", "", "page cursor: messages before this ID")
	historyCmd.Flags().StringVar(&historyAfter, "after", "", "page cursor: messages after this ID")
}
