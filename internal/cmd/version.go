package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folioai/chatgate/internal/server/handlers"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for full details including Crucible and Go versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := handlers.CurrentVersion()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s %s\n", v.App.Name, v.App.Version)
		if !extended {
			return nil
		}

		fmt.Fprintf(out, "Commit: %s\n", v.App.Commit)
		fmt.Fprintf(out, "Built: %s\n", v.App.BuildDate)
		fmt.Fprintf(out, "Environment: %s\n", v.App.Environment)
		fmt.Fprintf(out, "Go: %s (%s)\n", v.App.GoVersion, v.Runtime.Platform)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Gofulmen: %s\n", v.Dependencies.Gofulmen)
		fmt.Fprintf(out, "Crucible: %s\n", v.Dependencies.Crucible)
		if v.Dependencies.Chi != "" {
			fmt.Fprintf(out, "chi: %s\n", v.Dependencies.Chi)
		}
		if v.Dependencies.GoRedis != "" {
			fmt.Fprintf(out, "go-redis: %s\n", v.Dependencies.GoRedis)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
