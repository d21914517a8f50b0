//go:build !windows

package signals

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/vaultmerge/vaultmerge/faults"
)

// ToSignal convert a signal name, with or without the SIG prefix, to signal
func ToSignal(signalName string) (os.Signal, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(signalName)), "SIG") {
	case "HUP":
		return syscall.SIGHUP, nil
	case "INT":
		return syscall.SIGINT, nil
	case "QUIT":
		return syscall.SIGQUIT, nil
	case "TERM":
		return syscall.SIGTERM, nil
	case "USR1":
		return syscall.SIGUSR1, nil
	case "USR2":
		return syscall.SIGUSR2, nil
	default:
		return nil, faults.Wrap(faults.BAD_CONFIG, "stop signal", fmt.Errorf("unsupported signal %q", signalName))
	}
}

// Parse converts a space or comma separated list of signal names
func Parse(names string) ([]os.Signal, error) {
	fields := strings.FieldsFunc(names, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 0 {
		return nil, faults.Wrap(faults.BAD_CONFIG, "stop signal", fmt.Errorf("no signal given"))
	}
	result := make([]os.Signal, 0, len(fields))
	for _, name := range fields {
		sig, err := ToSignal(name)
		if err != nil {
			return nil, err
		}
		result = append(result, sig)
	}
	return result, nil
}
