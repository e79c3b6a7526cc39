//go:build !windows

// Package process terminates browser process trees left behind by a
// session that could not be closed through the protocol.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// the browser's renderer and GPU children with it. Non-positive pids are
// ignored: -0 would address the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best effort; the launcher's own Kill remains the fallback.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
