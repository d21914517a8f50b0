//go:build !windows

package main

import (
	"github.com/ochinchina/go-reaper"
	log "github.com/sirupsen/logrus"
)

// ReapZombie reaps orphaned children; only for use as PID 1, where nothing
// else would collect them
func ReapZombie() {
	log.Debug("start zombie reaper")
	go reaper.Reap()
}
