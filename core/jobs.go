package core

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Job is a background process the interpreter announced.
type Job struct {
	PID  int
	Args []string
}

func (j *Job) String() string {
	return strings.Join(j.Args, " ")
}

// FinishedJob is a background job that was reaped.
type FinishedJob struct {
	*Job
	Status ExitStatus
}

type waitFunc func(pid int, wstatus *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)

// Jobs tracks outstanding background processes. Only processes that were
// added are ever waited on.
type Jobs struct {
	mu   sync.Mutex
	jobs []*Job
	wait waitFunc
}

// NewJobs creates an empty job set.
func NewJobs() *Jobs {
	return &Jobs{wait: unix.Wait4}
}

// Add starts tracking a background process.
func (j *Jobs) Add(pid int, args []string) *Job {
	job := &Job{PID: pid, Args: append([]string(nil), args...)}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs = append(j.jobs, job)
	return job
}

// Len returns the number of outstanding jobs.
func (j *Jobs) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.jobs)
}

// PIDs returns the outstanding process IDs in start order.
func (j *Jobs) PIDs() []int {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []int
	for _, job := range j.jobs {
		out = append(out, job.PID)
	}
	return out
}

// Reap performs one non-blocking pass over the outstanding jobs and returns
// every job that has finished, in start order. It never blocks.
func (j *Jobs) Reap() []FinishedJob {
	j.mu.Lock()
	defer j.mu.Unlock()

	var (
		finished []FinishedJob
		running  []*Job
	)
	for _, job := range j.jobs {
		var ws unix.WaitStatus
		pid, err := j.wait(job.PID, &ws, unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			running = append(running, job)
		case errors.Is(err, unix.ECHILD):
			// Someone else collected it, there's no status to report.
		case err != nil:
			running = append(running, job)
		case pid == job.PID && (ws.Exited() || ws.Signaled()):
			finished = append(finished, FinishedJob{Job: job, Status: exitStatusFromWait(ws)})
		default:
			running = append(running, job)
		}
	}
	j.jobs = running
	return finished
}
