package shell

import (
	"strings"
)

/**
Lines are processed in the following order:

1. A line starting with # is a comment and nothing else happens.

2. Every $$ in the raw line is replaced by the interpreter's process ID, so
the PID can appear inside a word, a path or on its own.

3. The line is split into words on blanks. There is no quoting.

4. Words are assigned left to right. The word after < is the input path, the
word after > is the output path. After a path has been read the remaining
words are not arguments anymore.

5. A trailing & requests background execution unless the interpreter is in
foreground-only mode.
**/

// Expand replaces every non-overlapping occurrence of the expansion token,
// scanning left to right, with pid.
func Expand(line, pid string) string {
	if !strings.Contains(line, ExpansionToken) {
		return line
	}

	var sb strings.Builder
	sb.Grow(len(line) + strings.Count(line, ExpansionToken)*len(pid))
	for {
		idx := strings.Index(line, ExpansionToken)
		if idx < 0 {
			sb.WriteString(line)
			return sb.String()
		}
		sb.WriteString(line[:idx])
		sb.WriteString(pid)
		line = line[idx+len(ExpansionToken):]
	}
}

// Tokenize splits a line on spaces, tabs and newlines.
func Tokenize(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// Parse converts a raw input line into a Command.
func Parse(line, pid string, foregroundOnly bool) *Command {
	if strings.HasPrefix(line, CommentMarker) {
		return &Command{Args: []string{CommentMarker}}
	}

	tokens := Tokenize(Expand(line, pid))
	cmd := &Command{}
	if len(tokens) == 0 || tokens[0] == CommentMarker {
		return cmd
	}

	// Once a redirection path is consumed, words stop being arguments.
	pathSeen := false
	prev := ""
	for _, tok := range tokens {
		consumed := false
		switch prev {
		case RedirectIn:
			cmd.InputPath = tok
			pathSeen, consumed = true, true
		case RedirectOut:
			cmd.OutputPath = tok
			pathSeen, consumed = true, true
		}

		switch {
		case consumed:
		case tok == RedirectIn, tok == RedirectOut, tok == Background:
		case pathSeen:
			cmd.Dropped = append(cmd.Dropped, tok)
		default:
			cmd.Args = append(cmd.Args, tok)
		}

		prev = tok
	}

	cmd.Background = prev == Background && !foregroundOnly
	return cmd
}
