package shell

const (
	// CommentMarker is the sole argument of a command parsed from a comment line.
	CommentMarker = "#"

	RedirectIn  = "<"
	RedirectOut = ">"
	Background  = "&"

	// ExpansionToken is replaced by the interpreter's PID before tokenizing.
	ExpansionToken = "$$"
)

// Command is a single parsed input line.
type Command struct {
	// Args holds the program name followed by its arguments.
	Args []string

	// InputPath replaces standard input when non-empty.
	InputPath string
	// OutputPath replaces standard output when non-empty.
	OutputPath string

	// Background is set when the line ended in & and the interpreter wasn't in
	// foreground-only mode.
	Background bool

	// Dropped holds tokens that followed a redirection and were discarded.
	Dropped []string
}

// IsNoop returns true if the command is a comment or blank line and must not
// be dispatched.
func (c *Command) IsNoop() bool {
	return len(c.Args) == 0 || c.Args[0] == CommentMarker
}

// Name returns the program name or "" for a no-op command.
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}
