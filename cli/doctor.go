package cli

import (
	"github.com/mobile-next/edgenav/commands"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	Long:  `Checks adb, the configuration and the journal location for better troubleshooting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.DoctorCommand(GetVersion()))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
