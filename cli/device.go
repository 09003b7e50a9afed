package cli

import (
	"context"
	"time"

	"github.com/mobile-next/edgenav/commands"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Device information commands",
	Long:  `Commands for inspecting a device before watching it.`,
}

var deviceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Get device info",
	Long:  `Shows the display, navigation edge, touchscreens, home launcher and lock screen state of a device.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		info, err := commands.InfoCommand(ctx, deviceId)
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}
		return printResponse(commands.NewSuccessResponse(info))
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)

	deviceCmd.AddCommand(deviceInfoCmd)
}
