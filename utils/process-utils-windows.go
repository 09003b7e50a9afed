//go:build windows

package utils

import (
	"os/exec"
)

// ConfigureDetachedProcAttr is a no-op on Windows; adb children end through
// context cancellation.
func ConfigureDetachedProcAttr(cmd *exec.Cmd) {
}
