// Package dumper runs the external tools that produce and consume database
// dumps. Every dumper writes into, or reads from, a directory owned by the
// caller and forwards the user's option string to the tool untouched.
package dumper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Output is what a tool printed
type Output struct {
	Stdout string
	Stderr string
}

// SubprocessError reports a tool that could not run or exited non-zero.
// Stdout and Stderr hold the tool's output verbatim.
type SubprocessError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *SubprocessError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s failed to run: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

func (e *SubprocessError) Unwrap() error { return e.Err }

// Output returns the captured output of the failed tool
func (e *SubprocessError) Output() Output {
	return Output{Stdout: e.Stdout, Stderr: e.Stderr}
}

// command describes one tool invocation
type command struct {
	name  string
	args  []string
	env   []string
	stdin io.Reader
}

func (c command) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// run executes c and waits for it
func run(ctx context.Context, c command) (Output, error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}
	cmd.Stdin = c.stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return out, subprocessError(c.name, err, out)
	}
	return out, nil
}

func subprocessError(name string, err error, out Output) error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &SubprocessError{
		Command:  name,
		ExitCode: code,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Err:      err,
	}
}

// stream starts c with its stdout handed to the caller. Closing the reader
// waits for the tool and reports its exit status.
func stream(ctx context.Context, c command) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}
	cmd.Stdin = c.stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	sr := &streamReader{ReadCloser: stdout, cmd: cmd, name: c.name}
	cmd.Stderr = &sr.stderr

	if err := cmd.Start(); err != nil {
		return nil, subprocessError(c.name, err, Output{})
	}
	return sr, nil
}

type streamReader struct {
	io.ReadCloser
	cmd    *exec.Cmd
	name   string
	stderr bytes.Buffer
}

func (s *streamReader) Close() error {
	_ = s.ReadCloser.Close()
	if err := s.cmd.Wait(); err != nil {
		return subprocessError(s.name, err, Output{Stderr: s.stderr.String()})
	}
	return nil
}
