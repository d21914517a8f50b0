package process

import (
	"fmt"
	"strings"
)

// EnvWithOverride returns env with the key/value pairs set, replacing any
// earlier definition of the same keys
func EnvWithOverride(env []string, pairs ...string) []string {
	newEnv := make([]string, 0, len(env)+len(pairs)/2)
	set := make(map[string]bool)

	for i := 0; i+1 < len(pairs); i += 2 {
		newEnv = append(newEnv, fmt.Sprintf("%s=%s", pairs[i], pairs[i+1]))
		set[pairs[i]] = true
	}

	for _, e := range env {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) < 2 || set[parts[0]] {
			continue
		}
		newEnv = append(newEnv, e)
	}
	return newEnv
}

// FilterRootEnv drops variables that leak the identity of a privileged parent
func FilterRootEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		if strings.HasPrefix(e, "SUDO_") ||
			strings.HasPrefix(e, "XDG_RUNTIME_DIR=") {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// LookupEnv returns the value of key in env
func LookupEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return e[len(prefix):], true
		}
	}
	return "", false
}
