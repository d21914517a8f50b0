package process

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Manager is the table of background process handles, keyed by name
type Manager struct {
	procs map[string]*Process
	lock  sync.Mutex
}

// NewManager creates an empty Manager
func NewManager() *Manager {
	return &Manager{procs: make(map[string]*Process)}
}

// Add registers proc under name, replacing an earlier handle
func (pm *Manager) Add(name string, proc *Process) {
	pm.lock.Lock()
	defer pm.lock.Unlock()
	pm.procs[name] = proc
	log.WithFields(log.Fields{"program": name}).Debug("add process")
}

// Find returns the process registered under name, or nil
func (pm *Manager) Find(name string) *Process {
	pm.lock.Lock()
	defer pm.lock.Unlock()
	return pm.procs[name]
}

// Names returns the registered names in sorted order
func (pm *Manager) Names() []string {
	pm.lock.Lock()
	defer pm.lock.Unlock()
	names := make([]string, 0, len(pm.procs))
	for name := range pm.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForEachProcess calls procFunc for every process in name order
func (pm *Manager) ForEachProcess(procFunc func(name string, p *Process)) {
	for _, name := range pm.Names() {
		if proc := pm.Find(name); proc != nil {
			procFunc(name, proc)
		}
	}
}
