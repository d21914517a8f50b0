package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/hashicorp/go-envparse"
	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/faults"
	"gopkg.in/ini.v1"
)

const (
	// SettingsSection is the section of the settings file holding Settings
	SettingsSection = "vaultmerge"
	// FoldersSection maps account names to target folders
	FoldersSection = "folders"

	// weak fallbacks for the crypt remote, used only when the secrets are unset
	DefaultCryptPassword  = "vaultmerge-insecure-password"
	DefaultCryptPassword2 = "vaultmerge-insecure-salt"
)

// Settings holds everything the orchestrator needs besides the accounts
type Settings struct {
	AccountsFile string `ini:"accounts_file" default:"/config/accounts.json"`
	WorkDir      string `ini:"work_dir" default:"/data"`
	LogDir       string `ini:"log_dir" default:"/data/logs"`
	RcloneConfig string `ini:"rclone_config" default:"/config/rclone/rclone.conf"`
	MountPoint   string `ini:"mount_point" default:"/mnt/vault"`

	BasePort       int           `ini:"base_port" default:"8080"`
	MaxConcurrency int           `ini:"max_concurrency" default:"100"`
	ReadyChecks    int           `ini:"ready_checks" default:"10"`
	ReadyInterval  time.Duration `ini:"ready_interval" default:"1s"`
	LoginSettle    time.Duration `ini:"login_settle" default:"2s"`
	FolderPrefix   string        `ini:"folder_prefix" default:"vault"`

	UnionRemote    string `ini:"union_remote" default:"union"`
	CryptRemote    string `ini:"crypt_remote" default:"crypt"`
	CryptPassword  string `ini:"crypt_password"`
	CryptPassword2 string `ini:"crypt_password2"`
	RequireSecrets bool   `ini:"require_secrets" default:"false"`

	LoginCmd      string `ini:"login_cmd" default:"mega-login"`
	MkdirCmd      string `ini:"mkdir_cmd" default:"mega-mkdir"`
	ServeCmd      string `ini:"serve_cmd" default:"mega-webdav"`
	RcloneCmd     string `ini:"rclone_cmd" default:"rclone"`
	FusermountCmd string `ini:"fusermount_cmd" default:"fusermount"`
	UmountCmd     string `ini:"umount_cmd" default:"umount"`

	PUID       int    `ini:"puid" default:"-1"`
	PGID       int    `ini:"pgid" default:"-1"`
	RunAsUser  string `ini:"run_as_user" default:"vault"`
	RunAsGroup string `ini:"run_as_group" default:"vault"`
	FuseGroup  string `ini:"fuse_group" default:"fuse"`

	HTTPAddr    string `ini:"http_addr"`
	StopSignals string `ini:"stop_signals" default:"INT TERM"`

	// account name -> folder, on top of the built-in table
	Folders map[string]string `ini:"-"`
}

// NewSettings returns Settings populated with defaults
func NewSettings() *Settings {
	s := &Settings{}
	if err := defaults.Set(s); err != nil {
		// only fails on malformed tags
		panic(err)
	}
	s.Folders = make(map[string]string)
	return s
}

// Load reads the optional settings file on top of the defaults. An empty
// path returns the defaults.
func Load(path string) (*Settings, error) {
	s := NewSettings()
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, faults.Wrap(faults.CONFIG_NOT_FOUND, fmt.Sprintf("settings file %s", path), err)
	}
	log.WithFields(log.Fields{"file": path}).Info("load settings from file")
	// secrets and folders may contain # and ;
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, faults.Wrap(faults.BAD_CONFIG, fmt.Sprintf("parse settings file %s", path), err)
	}
	if err := s.apply(f); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) apply(f *ini.File) error {
	if section, err := f.GetSection(SettingsSection); err == nil {
		if err := section.MapTo(s); err != nil {
			return faults.Wrap(faults.BAD_CONFIG, fmt.Sprintf("section [%s]", SettingsSection), err)
		}
	}
	if section, err := f.GetSection(FoldersSection); err == nil {
		for _, key := range section.Keys() {
			s.Folders[key.Name()] = strings.TrimSpace(key.String())
		}
	}
	return nil
}

// LoadEnvFile exports every variable of an env file into the process environment
func LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	kvs, err := envparse.Parse(f)
	if err != nil {
		return faults.Wrap(faults.BAD_CONFIG, fmt.Sprintf("parse env file %s", path), err)
	}
	for k, v := range kvs {
		if err := os.Setenv(k, v); err != nil {
			log.WithFields(log.Fields{log.ErrorKey: err, "key": k}).Error("fail to set environment variable")
		}
	}
	return nil
}

// ApplyEnv overrides settings from well-known environment variables
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"ACCOUNTS_FILE":   &s.AccountsFile,
		"WORK_DIR":        &s.WorkDir,
		"LOG_DIR":         &s.LogDir,
		"RCLONE_CONFIG":   &s.RcloneConfig,
		"MOUNT_POINT":     &s.MountPoint,
		"CRYPT_PASSWORD":  &s.CryptPassword,
		"CRYPT_PASSWORD2": &s.CryptPassword2,
		"HTTP_ADDR":       &s.HTTPAddr,
	}
	for name, field := range strs {
		if v := getenv(name); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"PUID":            &s.PUID,
		"PGID":            &s.PGID,
		"BASE_PORT":       &s.BasePort,
		"MAX_CONCURRENCY": &s.MaxConcurrency,
	}
	for name, field := range ints {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return faults.Wrap(faults.BAD_CONFIG, fmt.Sprintf("environment variable %s=%q", name, v), err)
		}
		*field = i
	}

	if v := getenv("REQUIRE_SECRETS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return faults.Wrap(faults.BAD_CONFIG, fmt.Sprintf("environment variable REQUIRE_SECRETS=%q", v), err)
		}
		s.RequireSecrets = b
	}
	return nil
}

// Validate checks the values the orchestrator cannot run without
func (s *Settings) Validate() error {
	switch {
	case s.BasePort <= 0 || s.BasePort > 65535:
		return faults.Wrap(faults.BAD_CONFIG, "base_port", fmt.Errorf("%d out of range", s.BasePort))
	case s.MaxConcurrency <= 0:
		return faults.Wrap(faults.BAD_CONFIG, "max_concurrency", fmt.Errorf("must be positive, got %d", s.MaxConcurrency))
	case s.ReadyChecks <= 0:
		return faults.Wrap(faults.BAD_CONFIG, "ready_checks", fmt.Errorf("must be positive, got %d", s.ReadyChecks))
	case s.MountPoint == "":
		return faults.Wrap(faults.BAD_CONFIG, "mount_point", fmt.Errorf("empty"))
	case s.UnionRemote == "" || s.CryptRemote == "":
		return faults.Wrap(faults.BAD_CONFIG, "remote names", fmt.Errorf("empty"))
	}
	return nil
}

// CryptSecrets returns the two crypt remote secrets. insecure is true when
// at least one of them fell back to the built-in default.
func (s *Settings) CryptSecrets() (password, password2 string, insecure bool, err error) {
	password, password2 = s.CryptPassword, s.CryptPassword2
	if password != "" && password2 != "" {
		return password, password2, false, nil
	}
	if s.RequireSecrets {
		return "", "", false, faults.Wrap(faults.MISSING_SECRETS, "crypt secrets",
			fmt.Errorf("CRYPT_PASSWORD and CRYPT_PASSWORD2 must both be set"))
	}
	if password == "" {
		password = DefaultCryptPassword
	}
	if password2 == "" {
		password2 = DefaultCryptPassword2
	}
	return password, password2, true, nil
}

// AccountDir is the isolated working directory of one account
func (s *Settings) AccountDir(name string) string {
	return filepath.Join(s.WorkDir, "accounts", name)
}

// AccountLog is the serve log file of one account
func (s *Settings) AccountLog(name string) string {
	return filepath.Join(s.LogDir, name+".log")
}

// MountLog is the log file of the mount process
func (s *Settings) MountLog() string {
	return filepath.Join(s.LogDir, "mount.log")
}

// WritableDirs lists the directories the unprivileged user must own
func (s *Settings) WritableDirs() []string {
	return []string{s.WorkDir, s.LogDir, filepath.Dir(s.RcloneConfig), s.MountPoint}
}
