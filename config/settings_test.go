package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultmerge/vaultmerge/faults"
)

func TestDefaults(t *testing.T) {
	s := NewSettings()
	assert.Equal(t, 8080, s.BasePort)
	assert.Equal(t, 100, s.MaxConcurrency)
	assert.Equal(t, 10, s.ReadyChecks)
	assert.Equal(t, time.Second, s.ReadyInterval)
	assert.Equal(t, -1, s.PUID)
	assert.Equal(t, -1, s.PGID)
	assert.Equal(t, "INT TERM", s.StopSignals)
	assert.NoError(t, s.Validate())
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vaultmerge.conf")
	content := `
[vaultmerge]
base_port = 9000
ready_interval = 250ms
mount_point = /srv/vault
require_secrets = true

[folders]
mega3 = /archive
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, s.BasePort)
	assert.Equal(t, 250*time.Millisecond, s.ReadyInterval)
	assert.Equal(t, "/srv/vault", s.MountPoint)
	assert.True(t, s.RequireSecrets)
	// untouched keys keep their defaults
	assert.Equal(t, 100, s.MaxConcurrency)
	assert.Equal(t, map[string]string{"mega3": "/archive"}, s.Folders)
}

func TestLoadKeepsCommentCharactersInValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultmerge.conf")
	content := `; settings
[vaultmerge]
crypt_password = hunter2#extra
crypt_password2 = salt;pepper

[folders]
# overrides
work = /a;b
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2#extra", s.CryptPassword)
	assert.Equal(t, "salt;pepper", s.CryptPassword2)
	assert.Equal(t, map[string]string{"work": "/a;b"}, s.Folders)
}

func TestLoadMissingSettingsFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
	assert.True(t, errors.Is(err, faults.ErrConfigNotFound))
}

func TestLoadEmptyPath(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewSettings(), s)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PUID":           "1000",
		"PGID":           "1001",
		"CRYPT_PASSWORD": "secret",
		"MOUNT_POINT":    "/mnt/other",
	}
	s := NewSettings()
	require.NoError(t, s.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, 1000, s.PUID)
	assert.Equal(t, 1001, s.PGID)
	assert.Equal(t, "secret", s.CryptPassword)
	assert.Equal(t, "/mnt/other", s.MountPoint)
	assert.Equal(t, 8080, s.BasePort)
}

func TestApplyEnvBadNumber(t *testing.T) {
	s := NewSettings()
	err := s.ApplyEnv(func(k string) string {
		if k == "PUID" {
			return "abc"
		}
		return ""
	})
	assert.True(t, errors.Is(err, faults.ErrBadConfig))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.env")
	require.NoError(t, os.WriteFile(path, []byte("VAULTMERGE_TEST_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("VAULTMERGE_TEST_KEY") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("VAULTMERGE_TEST_KEY"))
}

func TestCryptSecrets(t *testing.T) {
	s := NewSettings()
	p, p2, insecure, err := s.CryptSecrets()
	require.NoError(t, err)
	assert.True(t, insecure)
	assert.Equal(t, DefaultCryptPassword, p)
	assert.Equal(t, DefaultCryptPassword2, p2)

	s.CryptPassword, s.CryptPassword2 = "a", "b"
	p, p2, insecure, err = s.CryptSecrets()
	require.NoError(t, err)
	assert.False(t, insecure)
	assert.Equal(t, []string{"a", "b"}, []string{p, p2})
}

func TestCryptSecretsRequired(t *testing.T) {
	s := NewSettings()
	s.RequireSecrets = true
	s.CryptPassword = "only-one"
	_, _, _, err := s.CryptSecrets()
	assert.True(t, errors.Is(err, faults.ErrMissingSecrets))
}

func TestValidate(t *testing.T) {
	s := NewSettings()
	s.MaxConcurrency = 0
	assert.True(t, errors.Is(s.Validate(), faults.ErrBadConfig))

	s = NewSettings()
	s.BasePort = 70000
	assert.Error(t, s.Validate())
}
