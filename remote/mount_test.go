package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/faults"
	"github.com/vaultmerge/vaultmerge/process"
	"github.com/vaultmerge/vaultmerge/process/processtest"
)

func mountSettings(t *testing.T) *config.Settings {
	s := config.NewSettings()
	s.MountPoint = "/mnt/vault"
	s.LogDir = "/data/logs"
	return s
}

func TestMount(t *testing.T) {
	s := mountSettings(t)
	rec := &processtest.Recorder{}
	procMgr := process.NewManager()

	fs := afero.NewMemMapFs()

	proc, err := NewMounter(s, fs, rec, procMgr).Mount()
	require.NoError(t, err)
	assert.NotNil(t, proc)
	exists, err := afero.DirExists(fs, s.MountPoint)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Same(t, proc, procMgr.Find(MountProcess))

	cmds := rec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"mount", "crypt:", s.MountPoint, "--config", s.RcloneConfig, "--vfs-cache-mode", "full", "--allow-non-empty"}, cmds[0].Args)
	assert.Equal(t, filepath.Join(s.LogDir, "mount.log"), cmds[0].LogFile)
}

func TestMountSpawnFailure(t *testing.T) {
	rec := &processtest.Recorder{StartFunc: func(c process.Command) error { return errors.New("no rclone") }}
	_, err := NewMounter(mountSettings(t), afero.NewMemMapFs(), rec, process.NewManager()).Mount()
	assert.True(t, errors.Is(err, faults.ErrMountFailure))
}

func TestUnmountPrefersFusermount(t *testing.T) {
	s := mountSettings(t)
	rec := &processtest.Recorder{}

	require.NoError(t, NewMounter(s, afero.NewMemMapFs(), rec, process.NewManager()).Unmount(context.Background()))
	cmds := rec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "fusermount", cmds[0].Path)
	assert.Equal(t, []string{"-u", s.MountPoint}, cmds[0].Args)
}

func TestUnmountFallsBackToUmount(t *testing.T) {
	s := mountSettings(t)
	rec := &processtest.Recorder{RunFunc: func(ctx context.Context, c process.Command) error {
		if c.Name == "fusermount" {
			return errors.New("exit status 1")
		}
		return nil
	}}

	require.NoError(t, NewMounter(s, afero.NewMemMapFs(), rec, process.NewManager()).Unmount(context.Background()))
	cmds := rec.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "umount", cmds[1].Path)
	assert.Equal(t, []string{s.MountPoint}, cmds[1].Args)
}

func TestUnmountBothFail(t *testing.T) {
	rec := &processtest.Recorder{RunFunc: func(ctx context.Context, c process.Command) error {
		return errors.New("exit status 1")
	}}
	err := NewMounter(mountSettings(t), afero.NewMemMapFs(), rec, process.NewManager()).Unmount(context.Background())
	assert.True(t, errors.Is(err, faults.ErrMountFailure))
}
