package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

var twoBlocks = []Block{
	{Name: "mega1", URL: "http://127.0.0.1:8080/a/vault_primary"},
	{Name: "mega2", URL: "http://127.0.0.1:8081"},
}

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Render(twoBlocks)
	require.NoError(t, err)
	second, err := Render(twoBlocks)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderRejectsDefaultSection(t *testing.T) {
	_, err := Render([]Block{
		{Name: "mega1", URL: "http://127.0.0.1:8080"},
		{Name: "DEFAULT", URL: "http://127.0.0.1:8081"},
	})
	assert.Error(t, err)
}

func TestRenderRejectsDuplicateSection(t *testing.T) {
	_, err := Render([]Block{{Name: "mega1"}, {Name: "mega1"}})
	assert.Error(t, err)
}

func TestRenderKeepsOrderAndTemplate(t *testing.T) {
	out, err := Render(twoBlocks)
	require.NoError(t, err)

	f, err := ini.Load(out)
	require.NoError(t, err)

	var sections []string
	for _, name := range f.SectionStrings() {
		if name != ini.DefaultSection {
			sections = append(sections, name)
		}
	}
	assert.Equal(t, []string{"mega1", "mega2"}, sections)

	mega1 := f.Section("mega1")
	assert.Equal(t, []string{"type", "vendor", "user", "pass", "url"}, mega1.KeyStrings())
	assert.Equal(t, "webdav", mega1.Key("type").String())
	assert.Equal(t, "other", mega1.Key("vendor").String())
	assert.Equal(t, "anonymous", mega1.Key("user").String())
	assert.Equal(t, "", mega1.Key("pass").String())
	assert.Equal(t, "http://127.0.0.1:8080/a/vault_primary", mega1.Key("url").String())
	assert.Equal(t, "http://127.0.0.1:8081", f.Section("mega2").Key("url").String())

	assert.Contains(t, string(out), "[mega1]\ntype = webdav\n")
}

func TestRenderDifferentOrder(t *testing.T) {
	a, err := Render(twoBlocks)
	require.NoError(t, err)
	b, err := Render([]Block{twoBlocks[1], twoBlocks[0]})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRenderEmptyName(t *testing.T) {
	_, err := Render([]Block{{Name: "", URL: "x"}})
	assert.Error(t, err)
}
