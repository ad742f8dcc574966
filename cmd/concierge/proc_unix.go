//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// detachProcess starts cmd in its own process group so it outlives the CLI
func detachProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
