// Package executor runs whitelisted commands under tight sandboxing: argv is
// passed directly to process creation (no shell), the environment is
// replaced rather than inherited, the working directory is forced, and both
// wall-clock time and output size are bounded.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/protocol"
)

// TruncationMarker is appended to stdout/stderr when output was cut.
const TruncationMarker = "\n... (output truncated)"

// Restrictive default environment for commands that declare none.
var defaultEnv = map[string]string{"PATH": "/usr/bin:/bin"}

// Executor runs external commands for the bridge.
type Executor struct {
	// AllowedDirs is the executable allow-list used to resolve argv[0].
	AllowedDirs []string
	// MaxOutputSize truncates stdout and stderr beyond this many bytes.
	MaxOutputSize int
	// Debug echoes spawn-failure detail back to clients.
	Debug bool
	// Log receives execution records. Nil means slog.Default().
	Log *slog.Logger
}

// Execute runs one whitelisted command and returns its wire response.
func (e *Executor) Execute(name string, spec config.CommandSpec, params map[string]any) *protocol.Response {
	binary, err := config.ResolveExecutable(spec.Executable, e.AllowedDirs)
	if err != nil {
		return e.spawnFailure(name, err)
	}

	argv := append([]string{binary}, spec.Executable[1:]...)
	argv = append(argv, BuildArgs(spec, params)...)

	timeoutSeconds := spec.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = config.DefaultCommandTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = environFor(spec)
	cmd.Dir = workingDirFor(spec)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger().Info("executing command", "command", name, "argv", strings.Join(argv, " "))

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return &protocol.Response{
			Success: false,
			Error:   fmt.Sprintf("Command timeout after %d seconds", timeoutSeconds),
			Command: name,
		}
	}

	returncode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return e.spawnFailure(name, runErr)
		}
		returncode = exitErr.ExitCode()
	}

	outStr := e.truncate(stdout.Bytes())
	errStr := e.truncate(stderr.Bytes())

	resp := &protocol.Response{
		Success:    returncode == 0,
		Command:    name,
		ReturnCode: &returncode,
		Stdout:     &outStr,
		Stderr:     &errStr,
	}

	if spec.ResponseFormat != nil && spec.ResponseFormat.ParseJSON && outStr != "" {
		if json.Valid([]byte(outStr)) {
			resp.ParsedOutput = json.RawMessage(outStr)
		} else {
			resp.ParseError = "Output is not valid JSON"
		}
	}

	return resp
}

func (e *Executor) spawnFailure(name string, err error) *protocol.Response {
	e.logger().Error("command execution error", "command", name, "error", err)

	resp := &protocol.Response{
		Success: false,
		Error:   "Command execution failed",
		Command: name,
	}
	if e.Debug {
		resp.Details = err.Error()
	}
	return resp
}

// truncate caps raw at MaxOutputSize bytes, marks the cut, and trims
// surrounding whitespace.
func (e *Executor) truncate(raw []byte) string {
	s := string(raw)
	if e.MaxOutputSize > 0 && len(s) > e.MaxOutputSize {
		s = s[:e.MaxOutputSize] + TruncationMarker
	}
	return strings.TrimSpace(s)
}

func (e *Executor) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// BuildArgs renders the granted parameters into argv entries according to
// each parameter's declared style. Only parameters declared on the command
// are rendered; names are processed in sorted order so positional arguments
// are deterministic.
func BuildArgs(spec config.CommandSpec, params map[string]any) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		if _, declared := spec.Parameters[name]; declared {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var args []string
	for _, name := range names {
		value := formatValue(params[name])
		switch spec.Parameters[name].EffectiveStyle() {
		case config.StyleArgument:
			args = append(args, value)
		case config.StyleSingleFlag:
			args = append(args, "--"+name+"="+value)
		default: // config.StyleFlag
			args = append(args, "--"+name, value)
		}
	}
	return args
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

func environFor(spec config.CommandSpec) []string {
	env := spec.Env
	if len(env) == 0 {
		env = defaultEnv
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func workingDirFor(spec config.CommandSpec) string {
	if spec.Cwd != "" {
		return spec.Cwd
	}
	return "/"
}
