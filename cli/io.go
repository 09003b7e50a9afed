package cli

import (
	"github.com/mobile-next/edgenav/commands"
	"github.com/spf13/cobra"
)

var ioCmd = &cobra.Command{
	Use:   "io",
	Short: "Navigation input on devices",
	Long:  `Perform navigation actions on a device directly, without a gesture.`,
}

var ioButtonCmd = &cobra.Command{
	Use:   "button [button_name]",
	Short: "Press a navigation button on a device",
	Long:  `Injects a single key press ("HOME", "BACK" or "APP_SWITCH"). Button names are case-insensitive.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.ButtonCommand(commands.ButtonRequest{
			DeviceID: deviceId,
			Button:   args[0],
		}))
	},
}

var ioActionCmd = &cobra.Command{
	Use:       "action [back|home|recents|last_app]",
	Short:     "Perform a navigation action as a resolved gesture would",
	Long:      `Runs the same haptics, input method dismissal and key injection a resolved edge swipe performs.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"back", "home", "recents", "last_app"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.ActionCommand(commands.ActionRequest{
			DeviceID: deviceId,
			Action:   args[0],
		}))
	},
}

func init() {
	rootCmd.AddCommand(ioCmd)

	ioCmd.AddCommand(ioButtonCmd)
	ioCmd.AddCommand(ioActionCmd)
}
