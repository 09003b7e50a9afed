package cli

var (
	verbose bool

	// all commands
	deviceId   string
	configPath string

	// for devices command
	devicesWithDisplay bool

	// for watch command
	watchTouchDevice string
	watchDryRun      bool
	watchNoJournal   bool

	// for replay command
	replayFormat   string
	replayWidth    int
	replayHeight   int
	replayRotation int
	replayDensity  float64
	replayAxisMaxX int
	replayAxisMaxY int

	// for history command
	historyOutcome string
	historyLimit   int
)
