package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/faults"
)

// Command describes one invocation of an external tool
type Command struct {
	// Name identifies the command in logs and in the Manager
	Name string
	Path string
	Args []string
	Dir  string
	// Env is the complete environment; nil inherits ours
	Env []string
	// LogFile receives stdout and stderr of a started command
	LogFile    string
	LogBackups int
}

// String renders the command line for logs
func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Executor runs external tools. Run blocks until the command exits, Start
// returns as soon as it is spawned.
type Executor interface {
	Run(ctx context.Context, c Command) error
	Start(c Command) (*Process, error)
}

// Exec is the Executor backed by os/exec
type Exec struct{}

// NewExec creates the os/exec backed Executor
func NewExec() *Exec {
	return &Exec{}
}

// Run executes the command and waits for it. A non-zero exit is returned as
// an *exec.ExitError wrapped with the tail of the command's output.
func (e *Exec) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{}
	setDeathsig(cmd.SysProcAttr)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.WithFields(log.Fields{"command": c.Name}).Debug("run ", c.Path)
	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	if output != "" {
		log.WithFields(log.Fields{"command": c.Name}).Debug(output)
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%s exited: %w: %s", c.Name, err, lastLine(output))
		}
		return faults.Wrap(faults.SPAWN_ERROR, fmt.Sprintf("run %s", c.Name), err)
	}
	return nil
}

// Start spawns the command in the background
func (e *Exec) Start(c Command) (*Process, error) {
	proc := NewProcess(c)
	if err := proc.start(); err != nil {
		return proc, err
	}
	return proc, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
