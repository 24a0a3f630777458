//go:build unix

package runner

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// configureProcess starts the tool in its own process group so a timeout
// tears down the whole tree, including helpers the tool spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second
}
