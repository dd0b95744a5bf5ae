package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Disposition is how a process treats the interactive interrupt (SIGINT).
type Disposition int32

const (
	// DispositionDefault lets the signal terminate the process.
	DispositionDefault Disposition = iota
	// DispositionIgnore discards the signal.
	DispositionIgnore
	// DispositionHandler runs the interpreter's notification handler.
	DispositionHandler
)

func (d Disposition) String() string {
	switch d {
	case DispositionDefault:
		return "default"
	case DispositionIgnore:
		return "ignore"
	case DispositionHandler:
		return "handler"
	default:
		return fmt.Sprintf("Disposition(%d)", int32(d))
	}
}

// childDisposition is the SIGINT disposition a newly launched child gets.
func childDisposition(background bool) Disposition {
	if background {
		return DispositionIgnore
	}
	return DispositionDefault
}

// sysProcAttr expresses a child's disposition as process attributes. Children
// that ignore terminal interrupts get their own process group so the terminal
// never delivers SIGINT or SIGTSTP to them.
func sysProcAttr(d Disposition) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: d == DispositionIgnore}
}

// Messages written from signal context are allocated up front.
var (
	msgInterrupted         = []byte(fmt.Sprintf("\nterminated by signal %d\n", syscall.SIGINT))
	msgEnterForegroundOnly = []byte("\nEntering foreground-only mode (& is now ignored)\n")
	msgExitForegroundOnly  = []byte("\nExiting foreground-only mode\n")
)

const (
	// syncSignal marks a point in the signal stream. Signals queue in
	// ascending order, so it is observed after any SIGINT pending with it.
	syncSignal = syscall.SIGUSR2

	syncTimeout = time.Second
)

// JobControl holds the interpreter state that asynchronous signal handlers
// mutate. Every field the handlers touch is a single atomic word.
type JobControl struct {
	foregroundOnly atomic.Bool
	interrupt      atomic.Int32

	// fd receives handler notifications through raw, unbuffered writes.
	fd int

	mu sync.Mutex
	// synced is acknowledged by the watcher for every syncSignal, nil while
	// nothing is watching.
	synced chan struct{}
}

// NewJobControl creates the job control state, handler output goes to fd.
func NewJobControl(fd int, foregroundOnly bool) *JobControl {
	jc := &JobControl{fd: fd}
	jc.foregroundOnly.Store(foregroundOnly)
	jc.interrupt.Store(int32(DispositionIgnore))
	return jc
}

// IsForegroundOnly returns true if a trailing & is currently ignored.
func (jc *JobControl) IsForegroundOnly() bool {
	return jc.foregroundOnly.Load()
}

// ToggleForegroundOnly flips foreground-only mode and returns the new state.
func (jc *JobControl) ToggleForegroundOnly() bool {
	for {
		old := jc.foregroundOnly.Load()
		if jc.foregroundOnly.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// InterruptDisposition returns the interpreter's current SIGINT disposition.
func (jc *JobControl) InterruptDisposition() Disposition {
	return Disposition(jc.interrupt.Load())
}

// SetInterruptDisposition transitions the interpreter's SIGINT disposition and
// returns the previous one.
func (jc *JobControl) SetInterruptDisposition(d Disposition) Disposition {
	return Disposition(jc.interrupt.Swap(int32(d)))
}

// HandleInterrupt is the SIGINT handler.
func (jc *JobControl) HandleInterrupt() {
	if jc.InterruptDisposition() != DispositionHandler {
		return
	}
	jc.write(msgInterrupted)
}

// HandleStop is the SIGTSTP handler.
func (jc *JobControl) HandleStop() {
	if jc.ToggleForegroundOnly() {
		jc.write(msgEnterForegroundOnly)
	} else {
		jc.write(msgExitForegroundOnly)
	}
}

func (jc *JobControl) write(msg []byte) {
	_, _ = unix.Write(jc.fd, msg)
}

// Watch routes SIGINT and SIGTSTP to the handlers until ctx is done or the
// returned stop function is called.
//
// The interpreter keeps SIGINT subscribed rather than ignored: ignored signals
// survive exec, while caught ones are reset to the default in children.
func (jc *JobControl) Watch(ctx context.Context) (stop func()) {
	sigs := make(chan os.Signal, 4)
	synced := make(chan struct{}, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTSTP, syncSignal)

	jc.mu.Lock()
	jc.synced = synced
	jc.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				switch sig {
				case syscall.SIGINT:
					jc.HandleInterrupt()
				case syscall.SIGTSTP:
					jc.HandleStop()
				case syncSignal:
					select {
					case synced <- struct{}{}:
					default:
					}
				}
			}
		}
	}()

	return func() {
		jc.mu.Lock()
		jc.synced = nil
		jc.mu.Unlock()

		signal.Stop(sigs)
		cancel()
		<-done
	}
}

// Sync blocks until the watcher has handled every signal delivered to the
// interpreter before the call. It returns immediately if nothing is watching.
func (jc *JobControl) Sync() {
	jc.mu.Lock()
	synced := jc.synced
	jc.mu.Unlock()
	if synced == nil {
		return
	}

	// Drop acknowledgements for stray sync signals.
	select {
	case <-synced:
	default:
	}

	if err := unix.Kill(os.Getpid(), syncSignal); err != nil {
		return
	}

	select {
	case <-synced:
	case <-time.After(syncTimeout):
	}
}
