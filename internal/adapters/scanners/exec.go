// Package scanners wraps the external analysis tools. Each adapter runs its
// tool under its own timeout and never reports tool trouble as an error: a
// missing binary, a timeout, an unexpected exit code or unparsable output all
// produce a degraded, empty result.
package scanners

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"slices"
	"strings"
	"time"
)

type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner runs name with args in dir. A non-zero exit is reported in
// the result, not as an error.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (CommandResult, error)

func ExecCommand(ctx context.Context, dir, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// tool describes one invocation of an external scanner.
type tool struct {
	run     CommandRunner
	timeout time.Duration
	okCodes []int
}

// invoke runs the tool and returns its stdout, or a reason the run should be
// treated as degraded.
func (t tool) invoke(ctx context.Context, dir, name string, args ...string) ([]byte, string) {
	run := t.run
	if run == nil {
		run = ExecCommand
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	log.Printf("%s: exec: %s %s", name, name, strings.Join(args, " "))
	res, err := run(ctx, dir, name, args...)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Sprintf("%s timed out after %s", name, t.timeout)
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Sprintf("%s not found, install it to enable this scan", name)
	case err != nil:
		return nil, fmt.Sprintf("%s failed: %v", name, err)
	}
	okCodes := t.okCodes
	if len(okCodes) == 0 {
		okCodes = []int{0}
	}
	if !slices.Contains(okCodes, res.ExitCode) {
		return nil, fmt.Sprintf("%s exited with code %d: %s", name, res.ExitCode, firstLine(res.Stderr))
	}
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return nil, name + " produced no output"
	}
	return res.Stdout, ""
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func ptr[T any](v T) *T { return &v }
