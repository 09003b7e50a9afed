package cli

import (
	"github.com/mobile-next/edgenav/commands"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Run a recorded touch trace through the recognizer",
	Long: `Feeds a recorded trace through the recognizer on a simulated clock and prints
every dispatcher call and resolution. Traces are JSON lines of pointer events
or the output of 'getevent -lt'. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.ReplayCommand(commands.ReplayRequest{
			Path:     args[0],
			Format:   replayFormat,
			Width:    replayWidth,
			Height:   replayHeight,
			Rotation: replayRotation,
			Density:  replayDensity,
			AxisMaxX: replayAxisMaxX,
			AxisMaxY: replayAxisMaxY,
		}))
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayFormat, "format", "", "trace format: json or getevent (default: detect)")
	replayCmd.Flags().IntVar(&replayWidth, "width", 0, "natural display width in pixels (default 1080)")
	replayCmd.Flags().IntVar(&replayHeight, "height", 0, "natural display height in pixels (default 2160)")
	replayCmd.Flags().IntVar(&replayRotation, "rotation", 0, "display rotation, 0-3")
	replayCmd.Flags().Float64Var(&replayDensity, "density", 0, "display density scale (default 1)")
	replayCmd.Flags().IntVar(&replayAxisMaxX, "axis-max-x", 0, "raw X axis maximum of the touchscreen, getevent traces only")
	replayCmd.Flags().IntVar(&replayAxisMaxY, "axis-max-y", 0, "raw Y axis maximum of the touchscreen, getevent traces only")
}
