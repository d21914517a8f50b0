//go:build !windows

package process

import (
	"syscall"
)

// children live in their own process group, so a terminal signal aimed at
// vaultmerge does not take the serve processes down with it
func setDeathsig(sysProcAttr *syscall.SysProcAttr) {
	sysProcAttr.Setpgid = true
}
