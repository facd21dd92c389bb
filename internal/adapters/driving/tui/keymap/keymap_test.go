package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	assert.Equal(t, []string{"ctrl+c"}, km.Quit.Keys())
	assert.Equal(t, []string{"tab"}, km.NextField.Keys())
	assert.Equal(t, []string{"ctrl+s"}, km.Submit.Keys())
	assert.Equal(t, []string{" "}, km.Toggle.Keys())
	assert.Equal(t, "space", km.Toggle.Help().Key)
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.ShortHelp()

	require.Len(t, help, 2)
	assert.Equal(t, "help", help[0].Help().Desc)
	assert.Equal(t, "quit", help[1].Help().Desc)
}

func TestKeyMap_FormHelp(t *testing.T) {
	km := DefaultKeyMap()

	help := km.FormHelp()

	require.Len(t, help, 4)
	assert.Equal(t, "submit", help[1].Help().Desc)
}

func TestKeyMap_FullHelp(t *testing.T) {
	km := DefaultKeyMap()

	groups := km.FullHelp()

	require.Len(t, groups, 4)
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, 17, total)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		key     string
		binding string
		want    bool
	}{
		{"ctrl+s", "submit", true},
		{"ctrl+g", "report", true},
		{"enter", "submit", false},
		{"shift+tab", "prev", true},
		{"tab", "prev", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"/"+tt.binding, func(t *testing.T) {
			b := km.Submit
			switch tt.binding {
			case "report":
				b = km.Report
			case "prev":
				b = km.PrevField
			}
			assert.Equal(t, tt.want, Matches(tt.key, b))
		})
	}
}
