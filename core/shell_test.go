package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/smallsh/core/logger"
	"github.com/rs/zerolog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testShell is a shell reading a script, with stdout and stderr merged into
// a single file so the output reads like a terminal session.
type testShell struct {
	*Shell
	outPath string
}

func newTestShell(t *testing.T, script string) *testShell {
	t.Helper()
	return newLoggedTestShell(t, script, zerolog.Nop())
}

func newLoggedTestShell(t *testing.T, script string, log zerolog.Logger) *testShell {
	t.Helper()

	// The shell changes the process' working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	t.Cleanup(func() { devNull.Close() })

	outPath := filepath.Join(t.TempDir(), "session.out")
	out, err := os.Create(outPath)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })

	s, err := NewShell(Options{
		Stdin:  devNull,
		Stdout: out,
		Stderr: out,
		Reader: &plainReader{in: strings.NewReader(script), out: out},
		Color:  colorNever,
		Logger: log,
	})
	require.NoError(t, err)

	return &testShell{Shell: s, outPath: outPath}
}

// Output returns the session output with the echoed interpreter PID masked.
func (ts *testShell) Output(t *testing.T) string {
	t.Helper()

	out, err := os.ReadFile(ts.outPath)
	require.NoError(t, err)
	return strings.ReplaceAll(string(out), "hello "+ts.PID(), "hello <pid>")
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

func TestShell_sessions(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	cases := map[string]struct {
		script func(t *testing.T, dir string) string
	}{
		"builtins": {
			script: func(t *testing.T, dir string) string {
				return strings.Join([]string{
					"status",
					"cd " + filepath.Join(dir, "missing"),
					"status",
					"# a comment",
					"  # an indented comment",
					"",
					"exit",
					"status",
				}, "\n")
			},
		},
		"launch": {
			script: func(t *testing.T, dir string) string {
				writeScript(t, dir, "exit3.sh", "exit 3")
				writeScript(t, dir, "killself.sh", "kill -TERM $$")

				return strings.Join([]string{
					"cd " + dir,
					"echo hello $$ > out.txt",
					"cat < out.txt",
					"cat < missing.txt",
					"status",
					"no-such-command-smallsh",
					"status",
					"./exit3.sh",
					"status",
					"./killself.sh",
					"status",
					"cat < out.txt > copy.txt ignored words",
					"cat copy.txt",
				}, "\n")
			},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t, tc.script(t, t.TempDir()))
			require.NoError(t, ts.Run(t.Context()))

			g.Assert(t, tn, []byte(ts.Output(t)))
		})
	}
}

func TestShell_Execute_cd(t *testing.T) {
	home := t.TempDir()
	env := map[string]string{EnvHome: home}

	ts := newTestShell(t, "")
	ts.getenv = func(key string) string { return env[key] }

	require.NoError(t, ts.Execute("cd"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, mustEvalSymlinks(t, home), mustEvalSymlinks(t, wd))

	delete(env, EnvHome)
	require.NoError(t, ts.Execute("cd"))
	assert.Equal(t, "cd: HOME not set\n", ts.Output(t))

	// Built-ins leave the status alone.
	assert.Equal(t, ExitStatus{}, ts.LastStatus())
}

func mustEvalSymlinks(t *testing.T, path string) string {
	t.Helper()
	out, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return out
}

func TestShell_Execute_expandsPID(t *testing.T) {
	ts := newTestShell(t, "")
	out := filepath.Join(t.TempDir(), "pid$$.txt")

	require.NoError(t, ts.Execute("echo $$$ > "+out))

	expanded := strings.ReplaceAll(out, "$$", ts.PID())
	contents, err := os.ReadFile(expanded)
	require.NoError(t, err)
	assert.Equal(t, ts.PID()+"$\n", string(contents))
}

func TestShell_Execute_background(t *testing.T) {
	ts := newTestShell(t, "")

	require.NoError(t, ts.Execute("sleep 0.1 &"))
	pids := ts.Jobs.PIDs()
	require.Len(t, pids, 1)

	assert.Eventually(t, func() bool {
		ts.reap()
		return ts.Jobs.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)

	expected := fmt.Sprintf("background pid is %d\nbackground process %d is done: exit value 0\n", pids[0], pids[0])
	assert.Equal(t, expected, ts.Output(t))

	// Background jobs never change the foreground status.
	assert.Equal(t, ExitStatus{}, ts.LastStatus())
}

func TestShell_Execute_backgroundLaunchFailure(t *testing.T) {
	ts := newTestShell(t, "")

	require.NoError(t, ts.Execute("no-such-command-smallsh &"))
	assert.Zero(t, ts.Jobs.Len())
	assert.Equal(t, "no-such-command-smallsh: command not found\n", ts.Output(t))
	assert.Equal(t, ExitStatus{}, ts.LastStatus())
}

func TestShell_Execute_foregroundOnly(t *testing.T) {
	ts := newTestShell(t, "")
	ts.JobControl.ToggleForegroundOnly()

	require.NoError(t, ts.Execute("sh -c exit\t&"))
	assert.Zero(t, ts.Jobs.Len())
	assert.Empty(t, ts.Output(t))

	require.NoError(t, ts.Execute("false &"))
	assert.Equal(t, ExitStatus{Code: 1}, ts.LastStatus())
}

func TestShell_Execute_permissionDenied(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"), nil, 0644))

	ts := newTestShell(t, "")
	require.NoError(t, ts.Execute(filepath.Join(dir, "plain.txt")))

	assert.Equal(t, filepath.Join(dir, "plain.txt")+": permission denied\n", ts.Output(t))
	assert.Equal(t, ExitStatus{Code: ExitLaunchFailed}, ts.LastStatus())
}

func TestShell_Execute_outputRedirectFailure(t *testing.T) {
	ts := newTestShell(t, "")
	target := filepath.Join(t.TempDir(), "missing", "out.txt")

	require.NoError(t, ts.Execute("echo hi > "+target))
	assert.Equal(t, "cannot open "+target+" for output\n", ts.Output(t))
	assert.Equal(t, ExitStatus{Code: ExitRedirectFailed}, ts.LastStatus())
}

func TestShell_Run_exitSkipsRemainingInput(t *testing.T) {
	ts := newTestShell(t, "exit\nstatus\n")
	require.NoError(t, ts.Run(t.Context()))

	assert.True(t, ts.Quit)
	assert.Equal(t, ": ", ts.Output(t))
}

func TestShell_Execute_notADirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"), nil, 0755))
	target := filepath.Join(dir, "plain.txt", "tool")

	ts := newTestShell(t, "")
	require.NoError(t, ts.Execute(target))

	assert.Equal(t, target+": not a directory\n", ts.Output(t))
	assert.Equal(t, ExitStatus{Code: ExitLaunchFailed}, ts.LastStatus())
}

func TestShell_Run_interruptNotification(t *testing.T) {
	dir := t.TempDir()
	// The child interrupts the interpreter, then itself, right before exiting.
	writeScript(t, dir, "interrupt.sh", "kill -INT $PPID\nkill -INT $$")
	script := filepath.Join(dir, "interrupt.sh") + "\nstatus\n"

	for i := 0; i < 20; i++ {
		ts := newTestShell(t, script)
		require.NoError(t, ts.Run(t.Context()))

		assert.Equal(t, ": \nterminated by signal 2\n: terminated by signal 2\n: ", ts.Output(t), "run %d", i)
		assert.Equal(t, DispositionIgnore, ts.JobControl.InterruptDisposition())
	}
}

func TestShell_jobLog(t *testing.T) {
	buf := &bytes.Buffer{}
	ts := newLoggedTestShell(t, "", logger.New(buf, "debug"))

	require.NoError(t, ts.Execute("true"))

	var components []string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		entry := make(map[string]interface{})
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] == "foreground job finished" {
			components = append(components, fmt.Sprint(entry[logger.FieldComponent]))
		}
	}
	assert.Equal(t, []string{"jobs"}, components)
}
