package cli

import (
	"github.com/mobile-next/edgenav/commands"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently resolved gestures",
	Long:  `Lists resolutions recorded in the journal, newest first, with totals per outcome.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// an empty --device lists every device
		req := commands.HistoryRequest{
			DeviceID: deviceId,
			Outcome:  historyOutcome,
			Limit:    historyLimit,
		}

		return printResponse(commands.HistoryCommand(cmd.Context(), req))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "only show back, home, recents or last_app")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of entries")
}
