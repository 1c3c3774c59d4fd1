// Package run executes the external programs wglink delegates to, such as wg
// and ip.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mca3/wglink/internal/logging"
)

// Runner runs a program to completion and returns its standard output.
//
// input, if non-nil, is written to the program's standard input, which is
// then closed.
type Runner interface {
	Run(ctx context.Context, input []byte, program string, args ...string) (string, error)
}

// CommandFailedError is returned when a program could not be started or
// exited unsuccessfully.
type CommandFailedError struct {
	Program string
	Args    []string

	// ExitCode is -1 if the program never ran to completion.
	ExitCode int
	Stderr   string

	Err error
}

func (e *CommandFailedError) Error() string {
	cmd := strings.TrimSpace(e.Program + " " + strings.Join(e.Args, " "))

	var sb strings.Builder
	fmt.Fprintf(&sb, "command %q failed", cmd)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&sb, " with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&sb, ": %s", e.Stderr)
	}
	return sb.String()
}

func (e *CommandFailedError) Unwrap() error {
	return e.Err
}

// Exec runs programs using os/exec.
type Exec struct{}

var _ Runner = Exec{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, input []byte, program string, args ...string) (string, error) {
	logging.Debugf("$ %s %s", program, strings.Join(args, " "))

	fail := func(code int, stderr string, err error) error {
		return &CommandFailedError{
			Program:  program,
			Args:     args,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr),
			Err:      err,
		}
	}

	cmd := exec.CommandContext(ctx, program, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fail(-1, "", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return "", fail(-1, "", err)
	}

	// From here on the child must be reaped on every path.
	var werr error
	if input != nil {
		_, werr = stdin.Write(input)
	}
	stdin.Close()

	err = cmd.Wait()
	if werr != nil {
		return "", fail(-1, stderr.String(), fmt.Errorf("failed to write stdin: %w", werr))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fail(exitErr.ExitCode(), stderr.String(), nil)
		}
		return "", fail(-1, stderr.String(), err)
	}

	return strings.TrimSpace(strings.ToValidUTF8(stdout.String(), "\uFFFD")), nil
}
