package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"github.com/vaultmerge/vaultmerge/faults"
)

// Credential is one top-level entry of the accounts file
type Credential struct {
	Name     string
	Username string
	Password string
}

// Account is a credential together with everything derived for this run
type Account struct {
	Name     string
	Username string
	Password string
	Port     int
	Folder   string
	// isolated working directory, also HOME of the account's commands
	Dir     string
	LogFile string
}

// fixed folders for the first two accounts of the original deployment
var builtinFolders = map[string]string{
	"mega1": "/vault_primary",
	"mega2": "/vault_secondary",
}

// LoadAccounts reads the accounts file. Entries are returned in the order
// their keys appear in the document.
func LoadAccounts(fs afero.Fs, path string) ([]Credential, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, faults.Wrap(faults.CONFIG_NOT_FOUND, fmt.Sprintf("accounts file %s", path), err)
		}
		return nil, fmt.Errorf("read accounts file %s: %w", path, err)
	}
	creds, err := parseAccounts(jsonc.ToJSON(data))
	if err != nil {
		return nil, faults.Wrap(faults.BAD_CONFIG, fmt.Sprintf("accounts file %s", path), err)
	}
	return creds, nil
}

func parseAccounts(data []byte) ([]Credential, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expect a JSON object of accounts")
	}

	creds := make([]Credential, 0)
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := tok.(string)
		if err := checkName(name); err != nil {
			return nil, err
		}

		var entry map[string]interface{}
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("account %q: %w", name, err)
		}
		cred := Credential{Name: name, Username: field(entry, "user"), Password: field(entry, "pass")}
		// a repeated key keeps its first position and its last value
		if i, ok := index[name]; ok {
			creds[i] = cred
			continue
		}
		index[name] = len(creds)
		creds = append(creds, cred)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return creds, nil
}

func field(entry map[string]interface{}, key string) string {
	switch v := entry[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// section name ini.v1 writes without a header
const defaultSection = "DEFAULT"

// checkName rejects names that cannot be an rclone remote and a section of
// the remote config
func checkName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty account name")
	case strings.EqualFold(name, defaultSection):
		return fmt.Errorf("account name %q is reserved", name)
	case strings.ContainsAny(name, "[]:/\r\n"):
		return fmt.Errorf("account name %q contains one of [ ] : / or a line break", name)
	}
	return nil
}

// BuildAccounts assigns ports and folders in credential order. Names that
// cannot be remotes, or that clash with the union or crypt remote, are
// rejected with BAD_CONFIG.
func BuildAccounts(creds []Credential, s *Settings) ([]Account, error) {
	accounts := make([]Account, 0, len(creds))
	for i, c := range creds {
		if err := checkName(c.Name); err != nil {
			return nil, faults.Wrap(faults.BAD_CONFIG, "accounts", err)
		}
		if c.Name == s.UnionRemote || c.Name == s.CryptRemote {
			return nil, faults.Wrap(faults.BAD_CONFIG, "accounts",
				fmt.Errorf("account name %q is also the name of the union or crypt remote", c.Name))
		}
		accounts = append(accounts, Account{
			Name:     c.Name,
			Username: c.Username,
			Password: c.Password,
			Port:     s.BasePort + i,
			Folder:   ResolveFolder(c.Name, s.Folders, s.FolderPrefix),
			Dir:      s.AccountDir(c.Name),
			LogFile:  s.AccountLog(c.Name),
		})
	}
	return accounts, nil
}

// ResolveFolder returns the remote folder an account is served from
func ResolveFolder(name string, overrides map[string]string, prefix string) string {
	if f, ok := overrides[name]; ok && f != "" {
		return f
	}
	if f, ok := builtinFolders[name]; ok {
		return f
	}
	return fmt.Sprintf("/%s_%s", prefix, name)
}

// Names returns the account names in order
func Names(accounts []Account) []string {
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Name
	}
	return names
}
