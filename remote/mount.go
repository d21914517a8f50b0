package remote

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/faults"
	"github.com/vaultmerge/vaultmerge/process"
)

// MountProcess is the Manager key of the mount handle. It cannot clash with
// an account, remote names never contain ':'.
const MountProcess = "rclone:mount"

// Mounter attaches the crypt remote to the mount point and detaches it
type Mounter struct {
	settings *config.Settings
	fs       afero.Fs
	executor process.Executor
	procMgr  *process.Manager
}

// NewMounter creates a Mounter registering its handle in procMgr. The mount
// point is created on fs.
func NewMounter(settings *config.Settings, fs afero.Fs, executor process.Executor, procMgr *process.Manager) *Mounter {
	return &Mounter{settings: settings, fs: fs, executor: executor, procMgr: procMgr}
}

// Mount starts rclone mount in the background and returns without waiting
// for it
func (m *Mounter) Mount() (*process.Process, error) {
	s := m.settings
	if err := m.fs.MkdirAll(s.MountPoint, 0o755); err != nil {
		return nil, faults.Wrap(faults.MOUNT_FAILURE, fmt.Sprintf("create mount point %s", s.MountPoint), err)
	}
	log.WithFields(log.Fields{"remote": s.CryptRemote + ":", "mountPoint": s.MountPoint}).Info("mount crypt remote")
	proc, err := m.executor.Start(process.Command{
		Name: MountProcess,
		Path: s.RcloneCmd,
		Args: []string{"mount", s.CryptRemote + ":", s.MountPoint,
			"--config", s.RcloneConfig,
			"--vfs-cache-mode", "full",
			"--allow-non-empty"},
		LogFile:    s.MountLog(),
		LogBackups: 1,
	})
	if proc != nil {
		m.procMgr.Add(MountProcess, proc)
	}
	if err != nil {
		return proc, faults.Wrap(faults.MOUNT_FAILURE, "start rclone mount", err)
	}
	return proc, nil
}

// Unmount detaches the mount point with fusermount, falling back to umount
func (m *Mounter) Unmount(ctx context.Context) error {
	s := m.settings
	err := m.executor.Run(ctx, process.Command{Name: "fusermount", Path: s.FusermountCmd, Args: []string{"-u", s.MountPoint}})
	if err == nil {
		return nil
	}
	log.WithFields(log.Fields{"mountPoint": s.MountPoint, log.ErrorKey: err}).Warn("fusermount failed, try umount")

	if err := m.executor.Run(ctx, process.Command{Name: "umount", Path: s.UmountCmd, Args: []string{s.MountPoint}}); err != nil {
		return faults.Wrap(faults.MOUNT_FAILURE, fmt.Sprintf("unmount %s", s.MountPoint), err)
	}
	return nil
}
