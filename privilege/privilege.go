// Package privilege re-executes vaultmerge as an unprivileged user when it
// is started as root with PUID/PGID set.
package privilege

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/config"
	"github.com/vaultmerge/vaultmerge/faults"
	"github.com/vaultmerge/vaultmerge/process"
)

// MarkerEnv is set in the environment of the re-executed image
const MarkerEnv = "VAULTMERGE_PRIVILEGES_DROPPED"

// Target is the identity vaultmerge drops to
type Target struct {
	UID       int
	GID       int
	User      string
	Group     string
	FuseGroup string
	Home      string
	// directories chowned recursively to UID:GID
	Dirs []string
	// paths left untouched, e.g. a read-only mounted accounts file
	Skip []string
}

// Plan returns the drop target, or false when nothing must be done: not
// root, PUID or PGID unset, or the marker already present.
func Plan(s *config.Settings, euid int, getenv func(string) string) (*Target, bool) {
	if euid != 0 || s.PUID < 0 || s.PGID < 0 || getenv(MarkerEnv) != "" {
		return nil, false
	}
	return &Target{
		UID:       s.PUID,
		GID:       s.PGID,
		User:      s.RunAsUser,
		Group:     s.RunAsGroup,
		FuseGroup: s.FuseGroup,
		Home:      s.WorkDir,
		Dirs:      s.WritableDirs(),
		Skip:      []string{s.AccountsFile},
	}, true
}

// Lookup resolves users and groups; os/user in production
type Lookup interface {
	LookupGroupId(gid string) (*user.Group, error)
	LookupGroup(name string) (*user.Group, error)
	LookupId(uid string) (*user.User, error)
}

type osLookup struct{}

func (osLookup) LookupGroupId(gid string) (*user.Group, error) { return user.LookupGroupId(gid) }
func (osLookup) LookupGroup(name string) (*user.Group, error)  { return user.LookupGroup(name) }
func (osLookup) LookupId(uid string) (*user.User, error)       { return user.LookupId(uid) }

// Dropper prepares the OS accounts and replaces the process image
type Dropper struct {
	target   Target
	executor process.Executor
	lookup   Lookup

	chown  func(path string, uid, gid int) error
	setIDs func(uid, gid int, groups []int) error
	exec   func(argv0 string, argv []string, envv []string) error
}

// NewDropper creates a Dropper using the real OS facilities
func NewDropper(target Target, executor process.Executor) *Dropper {
	return &Dropper{
		target:   target,
		executor: executor,
		lookup:   osLookup{},
		chown:    os.Lchown,
		setIDs:   setIDs,
		exec:     syscall.Exec,
	}
}

// Drop creates the group and user if needed, hands the writable directories
// over and re-executes the program with the same arguments. It only returns
// on failure.
func (d *Dropper) Drop(ctx context.Context) error {
	t := d.target
	groupName, err := d.ensureGroup(ctx, t.GID, t.Group)
	if err != nil {
		return err
	}
	u, err := d.ensureUser(ctx, t.UID, t.GID, t.User)
	if err != nil {
		return err
	}
	groups := []int{t.GID}
	if fuseGID, err := d.ensureFuseGroup(ctx, u.Username); err != nil {
		log.WithFields(log.Fields{log.ErrorKey: err, "group": t.FuseGroup}).Warn("fail to add user to fuse group")
	} else {
		groups = append(groups, fuseGID)
	}

	d.chownDirs()

	env := process.EnvWithOverride(process.FilterRootEnv(os.Environ()),
		MarkerEnv, "1",
		"HOME", u.HomeDir,
		"USER", u.Username,
		"LOGNAME", u.Username,
	)
	log.WithFields(log.Fields{"user": u.Username, "uid": t.UID, "group": groupName, "gid": t.GID}).Info("drop privileges and re-exec")

	self, err := os.Executable()
	if err != nil {
		return err
	}
	if err := d.setIDs(t.UID, t.GID, groups); err != nil {
		return fmt.Errorf("switch to %d:%d: %w", t.UID, t.GID, err)
	}
	return d.exec(self, os.Args, env)
}

func (d *Dropper) ensureGroup(ctx context.Context, gid int, name string) (string, error) {
	if g, err := d.lookup.LookupGroupId(strconv.Itoa(gid)); err == nil {
		return g.Name, nil
	}
	log.WithFields(log.Fields{"group": name, "gid": gid}).Info("create group")
	err := d.executor.Run(ctx, process.Command{Name: "groupadd", Path: "groupadd", Args: []string{"-g", strconv.Itoa(gid), name}})
	if err != nil {
		return "", fmt.Errorf("create group %s(%d): %w", name, gid, err)
	}
	return name, nil
}

func (d *Dropper) ensureUser(ctx context.Context, uid, gid int, name string) (*user.User, error) {
	if u, err := d.lookup.LookupId(strconv.Itoa(uid)); err == nil {
		return u, nil
	}
	log.WithFields(log.Fields{"user": name, "uid": uid}).Info("create user")
	err := d.executor.Run(ctx, process.Command{Name: "useradd", Path: "useradd", Args: []string{
		"-u", strconv.Itoa(uid), "-g", strconv.Itoa(gid), "-M", "-d", d.target.Home, "-s", "/sbin/nologin", name,
	}})
	if err != nil {
		return nil, fmt.Errorf("create user %s(%d): %w", name, uid, err)
	}
	return &user.User{Uid: strconv.Itoa(uid), Gid: strconv.Itoa(gid), Username: name, HomeDir: d.target.Home}, nil
}

// ensureFuseGroup makes sure the fuse group exists and username is a member
func (d *Dropper) ensureFuseGroup(ctx context.Context, username string) (int, error) {
	name := d.target.FuseGroup
	g, err := d.lookup.LookupGroup(name)
	if err != nil {
		if err := d.executor.Run(ctx, process.Command{Name: "groupadd", Path: "groupadd", Args: []string{name}}); err != nil {
			return 0, err
		}
		if g, err = d.lookup.LookupGroup(name); err != nil {
			return 0, err
		}
	}
	if err := d.executor.Run(ctx, process.Command{Name: "usermod", Path: "usermod", Args: []string{"-aG", name, username}}); err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

// chownDirs hands every writable directory to the target. Failures are
// logged only, the mount may still work with the default ownership.
func (d *Dropper) chownDirs() {
	skip := make(map[string]bool)
	for _, p := range d.target.Skip {
		skip[filepath.Clean(p)] = true
	}
	for _, dir := range d.target.Dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.WithFields(log.Fields{log.ErrorKey: err, "dir": dir}).Warn("fail to create directory")
			continue
		}
		err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if skip[filepath.Clean(path)] {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return d.chown(path, d.target.UID, d.target.GID)
		})
		if err != nil {
			log.WithFields(log.Fields{
				log.ErrorKey: faults.Wrap(faults.OWNERSHIP_CHANGE, dir, err),
				"dir":        dir,
			}).Warn("fail to change ownership")
		}
	}
}

func setIDs(uid, gid int, groups []int) error {
	if err := syscall.Setgroups(groups); err != nil {
		return err
	}
	if err := syscall.Setgid(gid); err != nil {
		return err
	}
	return syscall.Setuid(uid)
}
