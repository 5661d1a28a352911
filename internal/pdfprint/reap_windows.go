//go:build windows

package pdfprint

import (
	"os/exec"
	"strconv"
)

// reapBrowser kills the browser and its child processes with taskkill.
func reapBrowser(pid int) {
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
}
