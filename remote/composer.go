package remote

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/process"
)

// Composer declares the union and crypt remotes on top of the account
// remotes of the written config document
type Composer struct {
	settings *config.Settings
	executor process.Executor
}

// NewComposer creates a Composer
func NewComposer(settings *config.Settings, executor process.Executor) *Composer {
	return &Composer{settings: settings, executor: executor}
}

// Upstreams renders the union upstream list: "a: b: c:"
func Upstreams(names []string) string {
	refs := make([]string, len(names))
	for i, name := range names {
		refs[i] = name + ":"
	}
	return strings.Join(refs, " ")
}

// Compose creates the union remote over names, then the crypt remote over
// the union. Both are appended to the config document by rclone itself.
func (c *Composer) Compose(ctx context.Context, names []string, password, password2 string) error {
	s := c.settings
	upstreams := Upstreams(names)
	log.WithFields(log.Fields{"remote": s.UnionRemote, "upstreams": upstreams}).Info("create union remote")
	err := c.executor.Run(ctx, process.Command{
		Name: "rclone:union",
		Path: s.RcloneCmd,
		Args: []string{"config", "create", s.UnionRemote, "union", "upstreams", upstreams, "--config", s.RcloneConfig},
	})
	if err != nil {
		return fmt.Errorf("create union remote %s: %w", s.UnionRemote, err)
	}

	log.WithFields(log.Fields{"remote": s.CryptRemote, "wraps": s.UnionRemote + ":"}).Info("create crypt remote")
	err = c.executor.Run(ctx, process.Command{
		Name: "rclone:crypt",
		Path: s.RcloneCmd,
		Args: []string{"config", "create", s.CryptRemote, "crypt",
			"remote", s.UnionRemote + ":",
			"password", password,
			"password2", password2,
			"--obscure", "--config", s.RcloneConfig},
	})
	if err != nil {
		return fmt.Errorf("create crypt remote %s: %w", s.CryptRemote, err)
	}
	return nil
}
