package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/smallsh/core/logger"
	"github.com/josephlewis42/smallsh/core/shell"
	"github.com/josephlewis42/smallsh/core/ttylog"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	EnvHome = "HOME"
	EnvPath = "PATH"

	DefaultPrompt = ": "

	colorAlways = "always"
	colorNever  = "never"
)

// Options configures a Shell. Zero values fall back to the process' own
// standard streams, filesystem and environment.
type Options struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Fs is used to resolve program names.
	Fs afero.Fs
	// Reader supplies input lines, if nil one is built over Stdin.
	Reader LineReader

	Prompt         string
	ForegroundOnly bool
	// Color is one of always, auto or never.
	Color string

	Logger zerolog.Logger
	// Transcript receives the interpreter's own I/O if set.
	Transcript ttylog.LogSink
}

// Shell is an interactive command interpreter.
type Shell struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	Fs         afero.Fs
	Prompt     string
	Jobs       *Jobs
	JobControl *JobControl

	// Set to true to quit the shell
	Quit bool

	reader     LineReader
	out        io.Writer
	errOut     io.Writer
	errColor   *color.Color
	log        zerolog.Logger
	jobLog     zerolog.Logger
	pid        string
	lastStatus ExitStatus
	getenv     func(string) string
}

// NewShell creates a shell from the given options.
func NewShell(opts Options) (*Shell, error) {
	s := &Shell{
		Stdin:    opts.Stdin,
		Stdout:   opts.Stdout,
		Stderr:   opts.Stderr,
		Fs:       opts.Fs,
		Prompt:   opts.Prompt,
		Jobs:     NewJobs(),
		log:      opts.Logger,
		jobLog:   logger.WithComponent(opts.Logger, "jobs"),
		pid:      strconv.Itoa(os.Getpid()),
		getenv:   os.Getenv,
		errColor: color.New(color.FgRed),
		reader:   opts.Reader,
	}

	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	if s.Fs == nil {
		s.Fs = afero.NewOsFs()
	}
	if s.Prompt == "" {
		s.Prompt = DefaultPrompt
	}

	switch opts.Color {
	case colorAlways:
		s.errColor.EnableColor()
	case colorNever:
		s.errColor.DisableColor()
	}

	s.JobControl = NewJobControl(int(s.Stdout.Fd()), opts.ForegroundOnly)

	s.out, s.errOut = s.Stdout, s.Stderr
	if s.reader == nil {
		reader, err := NewLineReader(s.Stdin, s.Stdout, s.Stderr, s.JobControl)
		if err != nil {
			return nil, err
		}
		s.reader = reader
	}

	if opts.Transcript != nil {
		recorder := ttylog.NewRecorder(opts.Transcript)
		s.out = recorder.Writer(ttylog.FDStdout, s.out)
		s.errOut = recorder.Writer(ttylog.FDStderr, s.errOut)
		s.reader = &recordingReader{LineReader: s.reader, recorder: recorder}
	}

	return s, nil
}

// Getenv reads the interpreter's environment.
func (s *Shell) Getenv(key string) string {
	return s.getenv(key)
}

// PID returns the expansion of $$.
func (s *Shell) PID() string {
	return s.pid
}

// LastStatus returns how the last foreground command ended.
func (s *Shell) LastStatus() ExitStatus {
	return s.lastStatus
}

// reportf writes an error message for the user.
func (s *Shell) reportf(format string, args ...interface{}) {
	s.errColor.Fprintf(s.errOut, format, args...)
	fmt.Fprintln(s.errOut)
}

// Run reads and executes commands until exit, EOF or ctx is cancelled.
// It only returns an error when the interpreter can't continue.
func (s *Shell) Run(ctx context.Context) error {
	stop := s.JobControl.Watch(ctx)
	defer stop()
	defer s.reader.Close()

	s.log.Info().Str("pid", s.pid).Msg("shell started")

	for !s.Quit {
		if err := ctx.Err(); err != nil {
			return nil
		}

		s.reader.SetPrompt(s.Prompt)
		line, err := s.reader.Readline()

		switch {
		case errors.Is(err, io.EOF):
			s.log.Info().Msg("input closed")
			return nil

		case errors.Is(err, readline.ErrInterrupt):
			// Interrupt clears line.

		case err != nil:
			return fmt.Errorf("reading input: %w", err)

		default:
			if err := s.Execute(line); err != nil {
				return err
			}
		}

		if s.Quit {
			break
		}
		s.reap()
	}

	s.log.Info().Msg("exit")
	return nil
}

// Execute parses and runs a single input line.
func (s *Shell) Execute(line string) error {
	cmd := shell.Parse(line, s.pid, s.JobControl.IsForegroundOnly())
	if cmd.IsNoop() {
		return nil
	}

	s.log.Debug().
		Strs("args", cmd.Args).
		Str("input", cmd.InputPath).
		Str("output", cmd.OutputPath).
		Bool("background", cmd.Background).
		Msg("parsed command")
	if len(cmd.Dropped) > 0 {
		s.log.Debug().Strs("dropped", cmd.Dropped).Msg("ignored words after redirection")
	}

	// Execute builtins
	if builtin, ok := AllBuiltins[cmd.Name()]; ok {
		ret := builtin.Main(s, cmd.Args)
		s.log.Debug().Str("builtin", cmd.Name()).Int("ret", ret).Msg("ran builtin")
		return nil
	}

	return s.launch(cmd)
}

// reap reports every background job that finished since the last pass.
func (s *Shell) reap() {
	for _, job := range s.Jobs.Reap() {
		s.jobLog.Info().Int("pid", job.PID).Stringer("status", job.Status).Msg("background job finished")
		fmt.Fprintf(s.out, "background process %d is done: %s\n", job.PID, job.Status)
	}
}
