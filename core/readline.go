package core

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/smallsh/core/ttylog"
	"golang.org/x/term"
)

// LineReader supplies the interpreter with input lines.
type LineReader interface {
	SetPrompt(prompt string)
	// Readline returns the next line without its terminator. It returns io.EOF
	// when input is closed and readline.ErrInterrupt if the line was discarded.
	Readline() (string, error)
	Close() error
}

var _ LineReader = (*readline.Instance)(nil)

// NewLineReader creates a line editor on terminals and a plain reader for
// other inputs.
func NewLineReader(stdin, stdout, stderr *os.File, jc *JobControl) (LineReader, error) {
	if !term.IsTerminal(int(stdin.Fd())) {
		return &plainReader{in: stdin, out: stdout}, nil
	}

	cfg := &readline.Config{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		// No command history.
		HistoryLimit:           -1,
		DisableAutoSaveHistory: true,
		FuncGetWidth: func() int {
			width, _, err := term.GetSize(int(stdout.Fd()))
			if err != nil {
				return 80
			}
			return width
		},
		FuncIsTerminal: func() bool {
			return term.IsTerminal(int(stdout.Fd()))
		},
		// The editor holds the terminal in raw mode so Ctrl-Z arrives as a rune
		// rather than as SIGTSTP.
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == readline.CharCtrlZ {
				jc.HandleStop()
				return r, false
			}
			return r, true
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	return readline.NewEx(cfg)
}

// plainReader reads lines from non-terminal input one byte at a time so input
// after the current line is left for child processes.
type plainReader struct {
	in     io.Reader
	out    io.Writer
	prompt string
}

var _ LineReader = (*plainReader)(nil)

func (p *plainReader) SetPrompt(prompt string) {
	p.prompt = prompt
}

func (p *plainReader) Readline() (string, error) {
	if _, err := io.WriteString(p.out, p.prompt); err != nil {
		return "", err
	}

	var line bytes.Buffer
	buf := make([]byte, 1)
	for {
		n, err := p.in.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				return line.String(), nil
			}
			line.WriteByte(buf[0])
		}
		switch {
		case err == io.EOF && line.Len() > 0:
			return line.String(), nil
		case err != nil:
			return "", err
		}
	}
}

func (p *plainReader) Close() error {
	return nil
}

// recordingReader copies prompts and input lines to a transcript.
type recordingReader struct {
	LineReader
	recorder *ttylog.Recorder

	mu     sync.Mutex
	prompt string
}

func (r *recordingReader) SetPrompt(prompt string) {
	r.mu.Lock()
	r.prompt = prompt
	r.mu.Unlock()
	r.LineReader.SetPrompt(prompt)
}

func (r *recordingReader) Readline() (string, error) {
	r.mu.Lock()
	prompt := r.prompt
	r.mu.Unlock()

	r.recorder.Record(ttylog.FDStdout, []byte(prompt))
	line, err := r.LineReader.Readline()
	if err == nil {
		r.recorder.Record(ttylog.FDStdin, []byte(line+"\n"))
	}
	return line, err
}
