//go:build !windows

package pdfprint

import "syscall"

// reapBrowser sends SIGKILL to the browser's process group so renderer
// and GPU helpers do not outlive a closed printer.
func reapBrowser(pid int) {
	// launcher.Kill runs afterwards and covers the leader itself
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
