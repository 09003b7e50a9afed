package cli

import (
	"context"
	"fmt"

	"github.com/mobile-next/edgenav/commands"
	"github.com/mobile-next/edgenav/daemon"
	"github.com/mobile-next/edgenav/devices"
	"github.com/mobile-next/edgenav/journal"
	"github.com/mobile-next/edgenav/server"
	"github.com/mobile-next/edgenav/utils"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the edgenav server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the edgenav server",
	Long: `Starts the JSON-RPC and WebSocket server. With --device the server watches
that device; without it the recognizer is fed through gesture.feed only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := commands.GetConfig()

		listenAddr := cmd.Flag("listen").Value.String()
		if listenAddr == "" {
			listenAddr = cfg.Server.Listen
		}
		listenAddr, err := utils.NormalizeListenAddr(listenAddr)
		if err != nil {
			return err
		}

		// GetBool/GetString cannot fail for defined flags
		enableCORS, _ := cmd.Flags().GetBool("cors")
		enableCORS = enableCORS || cfg.Server.CORS
		isDaemon, _ := cmd.Flags().GetBool("daemon")
		logFile, _ := cmd.Flags().GetString("log-file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		if isDaemon && !daemon.IsChild() {
			if err := utils.CheckListenAddr(listenAddr); err != nil {
				return err
			}

			_, err := daemon.Daemonize(logFile)
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", listenAddr)
			return nil
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		stop, err := startRecognizer(ctx, cancel, dryRun)
		if err != nil {
			return err
		}
		defer stop()

		return server.StartServer(ctx, listenAddr, enableCORS)
	},
}

// startRecognizer installs the engine the API operates on: a live watch of
// --device, or an offline engine fed through the API.
func startRecognizer(ctx context.Context, cancel context.CancelFunc, dryRun bool) (func(), error) {
	if deviceId != "" {
		session, err := commands.StartWatch(ctx, commands.WatchRequest{
			DeviceID: deviceId,
			DryRun:   dryRun,
		})
		if err != nil {
			return nil, err
		}

		go func() {
			if err := session.Run(); err != nil {
				utils.Warn("touch reader stopped: %v", err)
			}
			// the server has nothing to serve once the device is gone
			cancel()
		}()

		return func() {
			if err := session.Cleanup(); err != nil {
				utils.Verbose("watch cleanup: %v", err)
			}
		}, nil
	}

	cfg := commands.GetConfig()
	hook := devices.NewShutdownHook()

	var store *journal.Store
	if cfg.Journal.Enabled {
		opened, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		store = opened
		hook.Register("journal", store.Close)
	}

	commands.SetEngine(commands.NewOfflineEngine(cfg, store))
	hook.Register("engine", func() error {
		commands.SetEngine(nil)
		return nil
	})

	if registry := commands.GetRegistry(); registry != nil {
		registry.Register("server", hook)
		hook.Register("registry", func() error {
			registry.Unregister("server")
			return nil
		})
	}

	return func() {
		if err := hook.Shutdown(); err != nil {
			utils.Verbose("server cleanup: %v", err)
		}
	}, nil
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemonized edgenav server",
	Long:  `Connects to the server and sends a shutdown command via JSON-RPC.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// GetString cannot fail for defined flags
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = commands.GetConfig().Server.Listen
		}

		err := daemon.KillServer(addr)
		if err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// add server subcommands
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	// server start flags
	serverStartCmd.Flags().String("listen", "", "Address to listen on (e.g., 'localhost:12100' or '0.0.0.0:13000')")
	serverStartCmd.Flags().Bool("cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolP("daemon", "d", false, "Run server in daemon mode (background)")
	serverStartCmd.Flags().String("log-file", "", "Write daemon output to this file")
	serverStartCmd.Flags().Bool("dry-run", false, "With --device, recognize gestures without performing any action")

	// server kill flags
	serverKillCmd.Flags().String("listen", "", "Address of server to kill (default: from configuration)")
}
