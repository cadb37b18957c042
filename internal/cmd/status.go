package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/folioai/chatgate/internal/chat"
	"github.com/folioai/chatgate/internal/output"
)

var (
	statusOutput string
	statusURL    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quota and upstream status from a running server",
	Long: `Query GET /api/chat/status on a running server and render the report.

Quotas shown are those of the calling client; they are peeked, not consumed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(statusOutput)
		if err != nil {
			return err
		}

		var report chat.StatusReport
		code, err := getJSON(cmd.Context(), serverURL(statusURL, cmd.Flags().Changed("url")), "/api/chat/status", nil, &report,
			http.StatusOK, http.StatusServiceUnavailable, http.StatusInternalServerError)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatStatus(&report)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)

		if code != http.StatusOK {
			return fmt.Errorf("chat service is %s", report.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	statusCmd.Flags().StringVar(&statusURL, "url", defaultServerURL, "base URL of the chatgate server")
}
