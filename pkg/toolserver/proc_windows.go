//go:build windows

package toolserver

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

// signalProcess kills the process. Windows cannot deliver an interrupt to
// another console group, so every escalation step is a hard kill.
func signalProcess(pid int, _ os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func terminatePID(pid int) error {
	return signalProcess(pid, os.Kill)
}

func listProcesses(context.Context) ([]procInfo, error) {
	return nil, errors.New("process listing is not supported on windows")
}
