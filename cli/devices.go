package cli

import (
	"github.com/mobile-next/edgenav/commands"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices",
	Long:  `List all Android devices and emulators visible to adb.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.DevicesCommand(commands.DevicesRequest{
			WithDisplay: devicesWithDisplay,
		}))
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&devicesWithDisplay, "display", false, "include display size, density and rotation")
}
