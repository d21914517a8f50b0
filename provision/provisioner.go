package provision

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/process"
	"golang.org/x/sync/errgroup"
)

// serve logs of earlier runs kept next to the current one
const serveLogBackups = 3

// Provisioner logs every account in and starts its WebDAV serve process
type Provisioner struct {
	settings *config.Settings
	fs       afero.Fs
	executor process.Executor
	procMgr  *process.Manager
}

// NewProvisioner creates a Provisioner registering serve handles in procMgr.
// Account directories are created on fs.
func NewProvisioner(settings *config.Settings, fs afero.Fs, executor process.Executor, procMgr *process.Manager) *Provisioner {
	return &Provisioner{settings: settings, fs: fs, executor: executor, procMgr: procMgr}
}

// Launch provisions all accounts, at most max_concurrency at a time, and
// returns once every account finished its launch phase. The serve processes
// keep running. Failures of one account are logged and do not stop the others.
func (pv *Provisioner) Launch(ctx context.Context, accounts []config.Account) {
	var g errgroup.Group
	g.SetLimit(pv.settings.MaxConcurrency)

	for _, account := range accounts {
		account := account
		g.Go(func() error {
			pv.provision(ctx, account)
			return nil
		})
	}
	_ = g.Wait()
}

func (pv *Provisioner) provision(ctx context.Context, a config.Account) {
	logger := log.WithFields(log.Fields{"account": a.Name, "port": a.Port, "folder": a.Folder})

	if err := pv.fs.MkdirAll(a.Dir, 0o700); err != nil {
		logger.WithError(err).Error("fail to create account directory")
	}
	env := process.EnvWithOverride(os.Environ(), "HOME", a.Dir)

	logger.Info("login")
	err := pv.executor.Run(ctx, process.Command{
		Name: a.Name + ":login",
		Path: pv.settings.LoginCmd,
		Args: []string{a.Username, a.Password},
		Dir:  a.Dir,
		Env:  env,
	})
	if err != nil {
		logger.WithError(err).Error("login failed")
	}

	if err := sleep(ctx, pv.settings.LoginSettle); err != nil {
		return
	}

	err = pv.executor.Run(ctx, process.Command{
		Name: a.Name + ":mkdir",
		Path: pv.settings.MkdirCmd,
		Args: []string{"-p", a.Folder},
		Dir:  a.Dir,
		Env:  env,
	})
	if err != nil {
		// usually the folder already exists
		logger.WithError(err).Debug("mkdir failed")
	}

	proc, err := pv.executor.Start(process.Command{
		Name:       a.Name,
		Path:       pv.settings.ServeCmd,
		Args:       []string{a.Folder, fmt.Sprintf("--port=%d", a.Port)},
		Dir:        a.Dir,
		Env:        env,
		LogFile:    a.LogFile,
		LogBackups: serveLogBackups,
	})
	if proc != nil {
		pv.procMgr.Add(a.Name, proc)
	}
	if err != nil {
		logger.WithError(err).Error("fail to start serve process")
		return
	}
	logger.WithFields(log.Fields{"log": a.LogFile}).Info("serve process started")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
