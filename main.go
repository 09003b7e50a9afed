package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mobile-next/edgenav/cli"
	"github.com/mobile-next/edgenav/commands"
	"github.com/mobile-next/edgenav/devices"
)

func main() {
	// watch sessions and the server register here so a signal can stop
	// the touch reader and flush the journal before exiting
	registry := devices.NewDeviceRegistry()
	commands.SetRegistry(registry)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- cli.Execute()
	}()

	select {
	case <-sigChan:
		registry.CleanupAll()
		os.Exit(0)
	case err := <-done:
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
