package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"
)

// waitDelay bounds how long Wait on a killed or exited child keeps draining
// copied stderr before the descriptors are forcibly closed.
const waitDelay = 2 * time.Second

// ErrHung marks a stage that did not exit within its wait timeout.
var ErrHung = errors.New("stage did not exit within grace period")

// Spec names one external command.
type Spec struct {
	Name   string
	Binary string
	Args   []string
	Dir    string
}

// CommandLine renders the command for logs. Arguments are not shell quoted.
func (s Spec) CommandLine() string {
	return strings.TrimSpace(s.Binary + " " + strings.Join(s.Args, " "))
}

// IO wires a stage's standard streams. A nil Stdin or Stdout is
// connected to the null device, and a nil Stderr discards output.
type IO struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr io.Writer
}

// ExitStatus is the terminal classification of one stage.
type ExitStatus struct {
	Stage    string
	Code     int
	Err      error
	Hung     bool
	Killed   bool
	Duration time.Duration
}

// Success reports whether the stage exited zero within its timeout.
func (s ExitStatus) Success() bool {
	return s.Err == nil && s.Code == 0 && !s.Hung
}

func (s ExitStatus) String() string {
	switch {
	case s.Hung && s.Killed:
		return fmt.Sprintf("%s: hung, killed", s.Stage)
	case s.Hung:
		return fmt.Sprintf("%s: hung", s.Stage)
	case s.Killed:
		return fmt.Sprintf("%s: killed", s.Stage)
	case s.Success():
		return fmt.Sprintf("%s: ok", s.Stage)
	case s.Code != 0:
		return fmt.Sprintf("%s: exit status %d", s.Stage, s.Code)
	default:
		return fmt.Sprintf("%s: %v", s.Stage, s.Err)
	}
}

// Handle is a running stage.
type Handle struct {
	spec    Spec
	cmd     *exec.Cmd
	started time.Time
	done    chan struct{}
	status  ExitStatus
	killed  atomic.Bool
}

// Start launches spec without waiting for it. Cancelling ctx kills the
// process.
func Start(ctx context.Context, spec Spec, streams IO) (*Handle, error) {
	if strings.TrimSpace(spec.Binary) == "" {
		return nil, fmt.Errorf("stage %s: empty binary", spec.Name)
	}
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay
	// Assigning a nil *os.File would yield a non-nil interface.
	if streams.Stdin != nil {
		cmd.Stdin = streams.Stdin
	}
	if streams.Stdout != nil {
		cmd.Stdout = streams.Stdout
	}
	if streams.Stderr != nil {
		cmd.Stderr = streams.Stderr
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	h := &Handle{
		spec:    spec,
		cmd:     cmd,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go h.reap()
	return h, nil
}

func (h *Handle) reap() {
	err := h.cmd.Wait()
	status := ExitStatus{
		Stage:    h.spec.Name,
		Duration: time.Since(h.started),
		Killed:   h.killed.Load(),
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		status.Code = exitErr.ExitCode()
		status.Err = err
	default:
		status.Code = -1
		status.Err = err
	}
	h.status = status
	close(h.done)
}

// Name returns the stage name.
func (h *Handle) Name() string { return h.spec.Name }

// Spec returns the command the stage was started with.
func (h *Handle) Spec() Spec { return h.spec }

// Pid returns the operating system process id.
func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the stage exits, timeout elapses, or ctx ends. A
// non-positive timeout waits without bound. A timed-out stage is reported as
// hung and left running; the caller decides whether to Kill it.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration) ExitStatus {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-h.done:
		return h.status
	case <-expired:
		return ExitStatus{
			Stage:    h.spec.Name,
			Code:     -1,
			Err:      ErrHung,
			Hung:     true,
			Duration: time.Since(h.started),
		}
	case <-ctx.Done():
		return ExitStatus{
			Stage:    h.spec.Name,
			Code:     -1,
			Err:      ctx.Err(),
			Duration: time.Since(h.started),
		}
	}
}

// Kill sends SIGKILL to the process. Killing an exited stage is a no-op.
func (h *Handle) Kill() error {
	select {
	case <-h.done:
		return nil
	default:
	}
	h.killed.Store(true)
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", h.spec.Name, err)
	}
	return nil
}
