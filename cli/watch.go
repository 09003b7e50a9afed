package cli

import (
	"encoding/json"
	"fmt"

	"github.com/mobile-next/edgenav/commands"
	"github.com/mobile-next/edgenav/gesture"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recognize edge swipes on a device",
	Long: `Reads the touchscreen of a device with getevent, recognizes edge swipes and
performs the resolved navigation action on the device. Each resolution is
printed as one JSON line. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := commands.WatchRequest{
			DeviceID:    deviceId,
			TouchDevice: watchTouchDevice,
			DryRun:      watchDryRun,
			NoJournal:   watchNoJournal,
		}

		return printResponse(commands.WatchCommand(cmd.Context(), req, printResolution))
	},
}

func printResolution(r gesture.Resolution) {
	line, err := json.Marshal(r)
	if err != nil {
		return
	}
	fmt.Println(string(line))
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchTouchDevice, "touch-device", "", "input device to read, e.g. /dev/input/event2 (default: first multi-touch screen)")
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "recognize gestures without performing any action")
	watchCmd.Flags().BoolVar(&watchNoJournal, "no-journal", false, "do not record resolutions in the journal")
}
