// Package processtest provides an Executor that records commands instead of
// running them.
package processtest

import (
	"context"
	"sync"

	"github.com/vaultmerge/vaultmerge/process"
)

// Recorder is a process.Executor keeping every command it is given
type Recorder struct {
	// RunFunc, when set, decides the result of Run
	RunFunc func(ctx context.Context, c process.Command) error
	// StartFunc, when set, runs before Start returns, e.g. to fake a log
	StartFunc func(c process.Command) error

	lock     sync.Mutex
	commands []process.Command
}

// Run records c and returns the result of RunFunc
func (r *Recorder) Run(ctx context.Context, c process.Command) error {
	r.record(c)
	if r.RunFunc != nil {
		return r.RunFunc(ctx, c)
	}
	return nil
}

// Start records c and returns a handle that was never spawned
func (r *Recorder) Start(c process.Command) (*process.Process, error) {
	r.record(c)
	proc := process.NewProcess(c)
	if r.StartFunc != nil {
		if err := r.StartFunc(c); err != nil {
			return proc, err
		}
	}
	return proc, nil
}

func (r *Recorder) record(c process.Command) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.commands = append(r.commands, c)
}

// Commands returns a copy of the recorded commands in call order
func (r *Recorder) Commands() []process.Command {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]process.Command(nil), r.commands...)
}

// Named returns the recorded commands with the given name
func (r *Recorder) Named(name string) []process.Command {
	var result []process.Command
	for _, c := range r.Commands() {
		if c.Name == name {
			result = append(result, c)
		}
	}
	return result
}
