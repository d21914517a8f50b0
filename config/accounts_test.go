package config

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultmerge/vaultmerge/faults"
)

func writeAccounts(t *testing.T, content string) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config/accounts.json", []byte(content), 0o600))
	return fs
}

func TestLoadAccountsKeepsKeyOrder(t *testing.T) {
	fs := writeAccounts(t, `{"zeta":{"user":"z","pass":"1"},"alpha":{"user":"a","pass":"2"},"mid":{"user":"m","pass":"3"}}`)

	creds, err := LoadAccounts(fs, "/config/accounts.json")
	require.NoError(t, err)
	assert.Equal(t, []Credential{
		{Name: "zeta", Username: "z", Password: "1"},
		{Name: "alpha", Username: "a", Password: "2"},
		{Name: "mid", Username: "m", Password: "3"},
	}, creds)
}

func TestLoadAccountsMissingFile(t *testing.T) {
	_, err := LoadAccounts(afero.NewMemMapFs(), "/config/accounts.json")
	assert.True(t, errors.Is(err, faults.ErrConfigNotFound))
	assert.Equal(t, 1, faults.ExitCode(err))
}

func TestLoadAccountsMissingFieldsAreEmpty(t *testing.T) {
	fs := writeAccounts(t, `{"mega1":{"user":"a"},"mega2":{},"mega3":null}`)

	creds, err := LoadAccounts(fs, "/config/accounts.json")
	require.NoError(t, err)
	require.Len(t, creds, 3)
	assert.Equal(t, Credential{Name: "mega1", Username: "a"}, creds[0])
	assert.Equal(t, Credential{Name: "mega2"}, creds[1])
	assert.Equal(t, Credential{Name: "mega3"}, creds[2])
}

func TestLoadAccountsAcceptsComments(t *testing.T) {
	fs := writeAccounts(t, `{
	// primary account
	"mega1": {"user": "a", "pass": "b"},
	/* backup */
	"mega2": {"user": "c", "pass": "d"},
}`)

	creds, err := LoadAccounts(fs, "/config/accounts.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"mega1", "mega2"}, []string{creds[0].Name, creds[1].Name})
}

func TestLoadAccountsRepeatedKey(t *testing.T) {
	fs := writeAccounts(t, `{"a":{"user":"1"},"b":{"user":"2"},"a":{"user":"3"}}`)

	creds, err := LoadAccounts(fs, "/config/accounts.json")
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, Credential{Name: "a", Username: "3"}, creds[0])
	assert.Equal(t, "b", creds[1].Name)
}

func TestLoadAccountsRejectsNonObject(t *testing.T) {
	for _, content := range []string{`[1,2]`, `{"a":"not an object"}`, `{"a":`} {
		_, err := LoadAccounts(writeAccounts(t, content), "/config/accounts.json")
		assert.True(t, errors.Is(err, faults.ErrBadConfig), content)
	}
}

func TestBuildAccountsAssignsSequentialPorts(t *testing.T) {
	s := NewSettings()
	creds := []Credential{{Name: "mega1"}, {Name: "mega2"}, {Name: "extra"}}

	accounts, err := BuildAccounts(creds, s)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, a := range accounts {
		assert.Equal(t, s.BasePort+i, a.Port)
	}
	assert.Equal(t, "/data/accounts/mega2", accounts[1].Dir)
	assert.Equal(t, "/data/logs/extra.log", accounts[2].LogFile)
	assert.Equal(t, []string{"mega1", "mega2", "extra"}, Names(accounts))
}

func TestLoadAccountsRejectsInvalidNames(t *testing.T) {
	for _, content := range []string{
		`{"DEFAULT":{"user":"a"}}`,
		`{"default":{"user":"a"}}`,
		`{"":{"user":"a"}}`,
		`{"mega]1":{"user":"a"}}`,
		`{"mega:1":{"user":"a"}}`,
		`{"mega/1":{"user":"a"}}`,
	} {
		_, err := LoadAccounts(writeAccounts(t, content), "/config/accounts.json")
		assert.True(t, errors.Is(err, faults.ErrBadConfig), content)
	}
}

func TestBuildAccountsRejectsInvalidNames(t *testing.T) {
	s := NewSettings()
	for _, name := range []string{"DEFAULT", "a]b", "a:b", "union", "crypt"} {
		_, err := BuildAccounts([]Credential{{Name: "mega1"}, {Name: name}}, s)
		assert.True(t, errors.Is(err, faults.ErrBadConfig), name)
	}

	s.UnionRemote = "merged"
	_, err := BuildAccounts([]Credential{{Name: "merged"}}, s)
	assert.True(t, errors.Is(err, faults.ErrBadConfig))
	_, err = BuildAccounts([]Credential{{Name: "union"}}, s)
	assert.NoError(t, err)
}

func TestResolveFolder(t *testing.T) {
	assert.Equal(t, "/vault_primary", ResolveFolder("mega1", nil, "vault"))
	assert.Equal(t, "/vault_secondary", ResolveFolder("mega2", nil, "vault"))
	assert.Equal(t, "/vault_mega3", ResolveFolder("mega3", nil, "vault"))
	assert.Equal(t, "/store_other", ResolveFolder("other", nil, "store"))
	assert.Equal(t, "/custom", ResolveFolder("mega1", map[string]string{"mega1": "/custom"}, "vault"))
}
