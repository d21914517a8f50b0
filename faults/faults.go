package faults

import (
	"errors"
	"fmt"
)

const (
	BAD_CONFIG        = 2
	CONFIG_NOT_FOUND  = 20
	MISSING_SECRETS   = 21
	FAILED            = 30
	READINESS_TIMEOUT = 40
	SPAWN_ERROR       = 50
	OWNERSHIP_CHANGE  = 60
	MOUNT_FAILURE     = 70
)

// Fault is an error carrying one of the codes above
type Fault struct {
	Code   int
	String string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.String, f.Err)
	}
	return f.String
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Is reports whether target is a Fault with the same code, so
// errors.Is(err, faults.ErrConfigNotFound) works on wrapped faults.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Code == f.Code
}

func NewFault(code int, desc string) error {
	return &Fault{Code: code, String: desc}
}

// Wrap creates a fault with the given code around err
func Wrap(code int, desc string, err error) error {
	return &Fault{Code: code, String: desc, Err: err}
}

var (
	ErrBadConfig        = NewFault(BAD_CONFIG, "BAD_CONFIG")
	ErrConfigNotFound   = NewFault(CONFIG_NOT_FOUND, "CONFIG_NOT_FOUND")
	ErrMissingSecrets   = NewFault(MISSING_SECRETS, "MISSING_SECRETS")
	ErrReadinessTimeout = NewFault(READINESS_TIMEOUT, "READINESS_TIMEOUT")
	ErrSpawn            = NewFault(SPAWN_ERROR, "SPAWN_ERROR")
	ErrOwnershipChange  = NewFault(OWNERSHIP_CHANGE, "OWNERSHIP_CHANGE")
	ErrMountFailure     = NewFault(MOUNT_FAILURE, "MOUNT_FAILURE")
)

// Code returns the fault code of err, or FAILED if err is not a fault
func Code(err error) int {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return FAILED
}

// ExitCode maps err to the status the process should exit with
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
