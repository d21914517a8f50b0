package remote

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

func init() {
	// rclone writes "key = value" without column alignment
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

// Block is the rclone remote of one account's WebDAV endpoint
type Block struct {
	Name string
	URL  string
}

// Keys returns the fixed key/value template of the block, in order
func (b Block) Keys() [][2]string {
	return [][2]string{
		{"type", "webdav"},
		{"vendor", "other"},
		{"user", "anonymous"},
		{"pass", ""},
		{"url", b.URL},
	}
}

// Render serializes the blocks, in order, into an rclone config document.
// The same blocks always render to the same bytes.
func Render(blocks []Block) ([]byte, error) {
	f := ini.Empty()
	for _, b := range blocks {
		// the default section is written first and without a header
		if strings.EqualFold(b.Name, ini.DefaultSection) {
			return nil, fmt.Errorf("remote %q: reserved section name", b.Name)
		}
		if f.HasSection(b.Name) {
			return nil, fmt.Errorf("remote %q: duplicate section", b.Name)
		}
		section, err := f.NewSection(b.Name)
		if err != nil {
			return nil, fmt.Errorf("remote %q: %w", b.Name, err)
		}
		for _, kv := range b.Keys() {
			if _, err := section.NewKey(kv[0], kv[1]); err != nil {
				return nil, fmt.Errorf("remote %q key %s: %w", b.Name, kv[0], err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
