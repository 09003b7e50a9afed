package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mobile-next/edgenav/commands"
	"github.com/mobile-next/edgenav/config"
	"github.com/mobile-next/edgenav/utils"
	"github.com/spf13/cobra"
)

var version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "edgenav",
	Short: "Edge swipe navigation for Android devices without navigation buttons",
	Long:  `Recognizes swipes from the screen edge of an Android device and turns them into back, home, recents and last-app navigation.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		commands.SetConfig(cfg)
		if cfg.Source != "" {
			utils.Verbose("loaded configuration from %s", cfg.Source)
		}
		return nil
	},
}

// GetVersion returns the build version, set at link time.
func GetVersion() string {
	return version
}

func initConfig() {
	utils.SetVerbose(verbose)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&deviceId, "device", "", "ID of the device to use (auto-selected when only one is online)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config.toml or config.ini file")
}

// Execute runs the root command
func Execute() error {
	// enable microseconds in logs
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rootCmd.Execute()
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}

// printResponse prints a command response and turns an error status into
// a non-zero exit.
func printResponse(response *commands.CommandResponse) error {
	printJson(response)
	if response.Status == "error" {
		return fmt.Errorf("%s", response.Error)
	}
	return nil
}
