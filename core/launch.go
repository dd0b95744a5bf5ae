package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/smallsh/core/shell"
	"golang.org/x/sys/unix"
)

// ErrForkFailed is returned when the interpreter can't create processes.
var ErrForkFailed = errors.New("fork failed")

// launchError is a command that couldn't be started.
type launchError struct {
	msg    string
	status int
}

func (e *launchError) Error() string {
	return e.msg
}

// isForkFailure reports whether a start error came from process creation
// rather than from the program image.
func isForkFailure(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM)
}

// openRedirects opens the command's redirection targets. Returned files are
// nil when the interpreter's own stream is inherited.
func openRedirects(cmd *shell.Command) (in, out *os.File, err error) {
	if cmd.InputPath != "" {
		in, err = os.Open(cmd.InputPath)
		if err != nil {
			return nil, nil, &launchError{
				msg:    fmt.Sprintf("cannot open %s for input", cmd.InputPath),
				status: ExitRedirectFailed,
			}
		}
	}

	if cmd.OutputPath != "" {
		out, err = os.OpenFile(cmd.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			if in != nil {
				in.Close()
			}
			return nil, nil, &launchError{
				msg:    fmt.Sprintf("cannot open %s for output", cmd.OutputPath),
				status: ExitRedirectFailed,
			}
		}
	}

	return in, out, nil
}

// start creates the child process for cmd and returns its PID.
func (s *Shell) start(cmd *shell.Command) (int, error) {
	in, out, err := openRedirects(cmd)
	if err != nil {
		return 0, err
	}
	defer func() {
		if in != nil {
			in.Close()
		}
		if out != nil {
			out.Close()
		}
	}()

	execPath, err := LookPath(s.Fs, s.Getenv(EnvPath), cmd.Name())
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return 0, &launchError{msg: fmt.Sprintf("%s: command not found", cmd.Name()), status: ExitLaunchFailed}
	case err != nil:
		return 0, &launchError{
			msg:    fmt.Sprintf("%s: %v", cmd.Name(), unwrapPathError(err)),
			status: ExitLaunchFailed,
		}
	}

	child := &exec.Cmd{
		Path:        execPath,
		Args:        cmd.Args,
		Stdin:       s.Stdin,
		Stdout:      s.Stdout,
		Stderr:      s.Stderr,
		SysProcAttr: sysProcAttr(childDisposition(cmd.Background)),
	}
	if in != nil {
		child.Stdin = in
	}
	if out != nil {
		child.Stdout = out
	}

	if err := child.Start(); err != nil {
		if isForkFailure(err) {
			return 0, fmt.Errorf("%w: %v", ErrForkFailed, err)
		}
		return 0, &launchError{
			msg:    fmt.Sprintf("%s: %v", cmd.Name(), unwrapPathError(err)),
			status: ExitLaunchFailed,
		}
	}

	pid := child.Process.Pid
	// The interpreter waits with wait4 directly.
	_ = child.Process.Release()
	return pid, nil
}

func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// launch runs a non-builtin command in the foreground or background.
func (s *Shell) launch(cmd *shell.Command) error {
	pid, err := s.start(cmd)

	var launchErr *launchError
	switch {
	case errors.As(err, &launchErr):
		s.reportf("%s", launchErr.msg)
		s.jobLog.Warn().Strs("args", cmd.Args).Int("status", launchErr.status).Msg(launchErr.msg)
		if !cmd.Background {
			s.lastStatus = ExitStatus{Code: launchErr.status}
		}
		return nil
	case err != nil:
		s.reportf("%v", err)
		return err
	}

	if cmd.Background {
		s.Jobs.Add(pid, cmd.Args)
		s.jobLog.Info().Int("pid", pid).Strs("args", cmd.Args).Msg("started background job")
		fmt.Fprintf(s.out, "background pid is %d\n", pid)
		return nil
	}

	s.jobLog.Debug().Int("pid", pid).Strs("args", cmd.Args).Msg("started foreground job")
	status, err := s.waitForeground(pid)
	if err != nil {
		s.reportf("wait: %v", err)
		return nil
	}
	s.lastStatus = status
	s.jobLog.Info().Int("pid", pid).Stringer("status", status).Msg("foreground job finished")
	return nil
}

// waitForeground blocks until the child exits. The interpreter's interrupt
// handler is active for the duration of the wait.
func (s *Shell) waitForeground(pid int) (ExitStatus, error) {
	prev := s.JobControl.SetInterruptDisposition(DispositionHandler)
	defer func() {
		// Interrupts that arrived while the child ran are still owed a
		// notification.
		s.JobControl.Sync()
		s.JobControl.SetInterruptDisposition(prev)
	}()

	for {
		var ws unix.WaitStatus
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return ExitStatus{}, err
		case ws.Stopped():
			// Foreground children don't stay stopped on the job control signal,
			// it belongs to the interpreter.
			if ws.StopSignal() == unix.SIGTSTP {
				_ = unix.Kill(pid, unix.SIGCONT)
			}
			continue
		default:
			return exitStatusFromWait(ws), nil
		}
	}
}
