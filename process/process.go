package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/faults"
	"github.com/vaultmerge/vaultmerge/logger"
)

// State the state of a background process
type State int

const (
	// Stopped the process was never started
	Stopped State = iota

	// Starting the process is being spawned
	Starting State = 10

	// Running the process is alive
	Running State = 20

	// Exited the process ended on its own
	Exited State = 100

	// Fatal the process could not be spawned
	Fatal State = 200
)

// String convert State to human-readable string
func (p State) String() string {
	switch p {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Exited:
		return "Exited"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Process is the handle of a long-running child. vaultmerge never stops it;
// the handle only records what happens to it.
type Process struct {
	command    Command
	cmd        *exec.Cmd
	startTime  time.Time
	stopTime   time.Time
	state      State
	exitStatus int
	lock       sync.RWMutex
	done       chan struct{}
}

// NewProcess creates a handle for c without starting it
func NewProcess(c Command) *Process {
	return &Process{
		command:   c,
		startTime: time.Unix(0, 0),
		stopTime:  time.Unix(0, 0),
		state:     Stopped,
		done:      make(chan struct{}),
	}
}

func (p *Process) start() error {
	p.changeStateTo(Starting)

	p.cmd = exec.Command(p.command.Path, p.command.Args...)
	p.cmd.Dir = p.command.Dir
	p.cmd.Env = p.command.Env
	p.cmd.SysProcAttr = &syscall.SysProcAttr{}
	setDeathsig(p.cmd.SysProcAttr)

	if p.command.LogFile != "" {
		f, err := logger.Open(p.command.LogFile, p.command.LogBackups)
		if err != nil {
			p.fail(err)
			return faults.Wrap(faults.SPAWN_ERROR, fmt.Sprintf("start %s", p.command.Name), err)
		}
		// the child keeps its own descriptor
		defer f.Close()
		p.cmd.Stdout = f
		p.cmd.Stderr = f
	}

	if err := p.cmd.Start(); err != nil {
		p.fail(err)
		return faults.Wrap(faults.SPAWN_ERROR, fmt.Sprintf("start %s", p.command.Name), err)
	}

	p.lock.Lock()
	p.startTime = time.Now()
	p.lock.Unlock()
	p.changeStateTo(Running)
	log.WithFields(log.Fields{"program": p.command.Name, "pid": p.cmd.Process.Pid}).Info("success to start program")

	go p.waitForExit()
	return nil
}

func (p *Process) fail(err error) {
	log.WithFields(log.Fields{"program": p.command.Name, log.ErrorKey: err}).Error("fail to start program")
	p.changeStateTo(Fatal)
	close(p.done)
}

func (p *Process) waitForExit() {
	err := p.cmd.Wait()

	p.lock.Lock()
	p.stopTime = time.Now()
	p.state = Exited
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		p.exitStatus = exitErr.ExitCode()
	} else if err != nil {
		p.exitStatus = -1
	}
	status := p.exitStatus
	p.lock.Unlock()
	close(p.done)

	fields := log.Fields{"program": p.command.Name, "exitStatus": status}
	if err != nil {
		fields[log.ErrorKey] = err
	}
	log.WithFields(fields).Warn("program exited")
}

func (p *Process) changeStateTo(state State) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.state = state
}

// GetName returns the command name
func (p *Process) GetName() string {
	return p.command.Name
}

// GetLogFile returns the log file of the process
func (p *Process) GetLogFile() string {
	return p.command.LogFile
}

// GetPid returns pid of running process or 0 it is not in running status
func (p *Process) GetPid() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.state != Running || p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// GetState returns the process state
func (p *Process) GetState() State {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.state
}

// GetStartTime returns process start time
func (p *Process) GetStartTime() time.Time {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.startTime
}

// GetStopTime returns process stop time
func (p *Process) GetStopTime() time.Time {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.stopTime
}

// GetExitstatus returns exit status of the process once it exited
func (p *Process) GetExitstatus() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.exitStatus
}

// IsRunning reports whether the child is still alive
func (p *Process) IsRunning() bool {
	return p.GetState() == Running
}

// Wait blocks until the process ends or ctx is done
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
