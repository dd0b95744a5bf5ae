package core

import (
	"errors"
	"fmt"
	"os"
)

// ErrHomeNotSet is reported by cd without an argument when HOME is empty.
var ErrHomeNotSet = errors.New("HOME not set")

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// Exit quits the shell. Background jobs are left running.
func Exit(s *Shell, args []string) int {
	s.Quit = true
	return 0
}

// Cd is the cd shell builtin, extra arguments are ignored.
func Cd(s *Shell, args []string) int {
	var dir string
	switch {
	case len(args) > 1:
		dir = args[1]
	default:
		dir = s.Getenv(EnvHome)
		if dir == "" {
			s.reportf("%s: %v", args[0], ErrHomeNotSet)
			return 1
		}
	}

	if err := os.Chdir(dir); err != nil {
		s.reportf("%s: %v", args[0], unwrapPathError(err))
		return 1
	}

	s.log.Debug().Str("dir", dir).Msg("changed directory")
	return 0
}

// Status prints how the last foreground command ended.
func Status(s *Shell, args []string) int {
	fmt.Fprintln(s.out, s.lastStatus)
	return 0
}

func init() {
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["status"] = ShellBuiltinFunc(Status)
}
