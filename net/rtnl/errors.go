package rtnl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// KernelRejectedError is returned when the kernel answers a request with a
// non-zero error code.
type KernelRejectedError struct {
	// Code is the signed value carried in the error message, which is the
	// negated errno.
	Code int32
}

// Errno returns the positive errno the kernel reported.
func (e *KernelRejectedError) Errno() unix.Errno {
	if e.Code < 0 {
		return unix.Errno(-e.Code)
	}
	return unix.Errno(e.Code)
}

func (e *KernelRejectedError) Error() string {
	return fmt.Sprintf("kernel rejected request: %v (code %d)", e.Errno(), e.Code)
}

// Unwrap allows errors.Is(err, unix.EEXIST) and friends.
func (e *KernelRejectedError) Unwrap() error {
	return e.Errno()
}

// MalformedResponseError is returned when a reply could not be parsed, or no
// reply matching the request arrived in time.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed netlink response: %s: %v", e.Reason, e.Err)
	}
	return "malformed netlink response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}
