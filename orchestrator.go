package main

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/process"
	"github.com/vaultmerge/vaultmerge/provision"
	"github.com/vaultmerge/vaultmerge/remote"
)

// AccountStatus is what the status server reports for one account
type AccountStatus struct {
	Name   string `json:"name"`
	Port   int    `json:"port"`
	Folder string `json:"folder"`
	URL    string `json:"url"`
	Ready  bool   `json:"ready"`
	State  string `json:"state"`
	Pid    int    `json:"pid"`
	// unix seconds, 0 until the serve process started or stopped
	StartTime int64 `json:"start_time"`
	StopTime  int64 `json:"stop_time"`
}

// Orchestrator runs the setup chain from the accounts file to the mount
type Orchestrator struct {
	settings *config.Settings
	fs       afero.Fs
	executor process.Executor
	procMgr  *process.Manager
	mounter  *remote.Mounter

	lock     sync.RWMutex
	accounts []config.Account
	urls     map[string]provision.ResolvedURL
}

// NewOrchestrator creates an Orchestrator reading and writing files through fs
func NewOrchestrator(settings *config.Settings, fs afero.Fs, executor process.Executor) *Orchestrator {
	procMgr := process.NewManager()
	return &Orchestrator{
		settings: settings,
		fs:       fs,
		executor: executor,
		procMgr:  procMgr,
		mounter:  remote.NewMounter(settings, fs, executor, procMgr),
		urls:     make(map[string]provision.ResolvedURL),
	}
}

// GetProcessManager returns the table of background processes
func (o *Orchestrator) GetProcessManager() *process.Manager {
	return o.procMgr
}

// Run provisions every account, writes the remote config, composes the
// union and crypt remotes and starts the mount. It returns once the mount
// was started; only a missing or broken input aborts it.
func (o *Orchestrator) Run(ctx context.Context) error {
	s := o.settings

	creds, err := config.LoadAccounts(o.fs, s.AccountsFile)
	if err != nil {
		return err
	}
	password, password2, insecure, err := s.CryptSecrets()
	if err != nil {
		return err
	}
	if insecure {
		log.Warn("CRYPT_PASSWORD or CRYPT_PASSWORD2 is not set, the vault is encrypted with a publicly known default secret")
	}

	accounts, err := config.BuildAccounts(creds, s)
	if err != nil {
		return err
	}
	o.lock.Lock()
	o.accounts = accounts
	o.lock.Unlock()
	log.WithFields(log.Fields{"accounts": len(accounts), "file": s.AccountsFile}).Info("accounts loaded")

	provision.NewProvisioner(s, o.fs, o.executor, o.procMgr).Launch(ctx, accounts)

	resolved := provision.NewPoller(s.ReadyChecks, s.ReadyInterval).Resolve(ctx, accounts, s.MaxConcurrency)
	blocks := make([]remote.Block, len(resolved))
	o.lock.Lock()
	for i, r := range resolved {
		o.urls[r.Account] = r
		blocks[i] = remote.Block{Name: r.Account, URL: r.URL}
	}
	o.lock.Unlock()

	content, err := remote.Render(blocks)
	if err != nil {
		return fmt.Errorf("render remote config: %w", err)
	}
	changed, err := remote.NewFileWriter(o.fs).Write(s.RcloneConfig, content)
	if err != nil {
		return fmt.Errorf("write remote config: %w", err)
	}
	log.WithFields(log.Fields{"file": s.RcloneConfig, "changed": changed}).Info("remote config written")

	if err := remote.NewComposer(s, o.executor).Compose(ctx, config.Names(accounts), password, password2); err != nil {
		log.WithError(err).Error("fail to compose union and crypt remotes")
	}

	if _, err := o.mounter.Mount(); err != nil {
		log.WithError(err).Error("fail to mount")
	}
	return nil
}

// Shutdown detaches the mount point
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.mounter.Unmount(ctx)
}

// Accounts returns the status of every account in account order
func (o *Orchestrator) Accounts() []AccountStatus {
	o.lock.RLock()
	defer o.lock.RUnlock()

	result := make([]AccountStatus, 0, len(o.accounts))
	for _, a := range o.accounts {
		status := AccountStatus{Name: a.Name, Port: a.Port, Folder: a.Folder, State: process.Stopped.String()}
		if r, ok := o.urls[a.Name]; ok {
			status.URL = r.URL
			status.Ready = r.Ready
		}
		if proc := o.procMgr.Find(a.Name); proc != nil {
			status.State = proc.GetState().String()
			status.Pid = proc.GetPid()
			if t := proc.GetStartTime(); t.Unix() > 0 {
				status.StartTime = t.Unix()
			}
			if t := proc.GetStopTime(); t.Unix() > 0 {
				status.StopTime = t.Unix()
			}
		}
		result = append(result, status)
	}
	return result
}

// FindAccount returns the account with the given name
func (o *Orchestrator) FindAccount(name string) (config.Account, bool) {
	o.lock.RLock()
	defer o.lock.RUnlock()
	for _, a := range o.accounts {
		if a.Name == name {
			return a, true
		}
	}
	return config.Account{}, false
}
