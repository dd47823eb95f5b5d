package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguages(t *testing.T) {
	langs := Languages()
	require.Len(t, langs, 6)
	assert.Equal(t, "en", langs[0].Code)
	assert.Equal(t, "Українська", langs[1].Name)

	for _, l := range langs {
		assert.True(t, IsSupported(l.Code))
		assert.NotEmpty(t, l.Flag)
	}
	assert.False(t, IsSupported("xx"))
}

func TestEveryLocaleHasEveryKey(t *testing.T) {
	english := Messages("en")
	for _, code := range Supported() {
		raw := defaultBundle.messages[code]
		for key := range english {
			assert.Contains(t, raw, key, "%s is missing %s", code, key)
		}
	}
}

func TestT(t *testing.T) {
	assert.Equal(t, "Tabela", T("pl", "nav.table"))
	assert.Equal(t, "Zeige 3 von 10 Einträgen", T("de", "table.showing", 3, 10))
	assert.Equal(t, "Table", T("xx", "nav.table"), "unknown language falls back to English")
	assert.Equal(t, "no.such.key", T("fr", "no.such.key"), "unknown key is returned as is")
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name      string
		accept    string
		preferred string
		want      string
	}{
		{"Saved preference wins", "de-DE,de;q=0.9", "uk", "uk"},
		{"Header with region", "pl-PL,pl;q=0.9,en;q=0.8", "", "pl"},
		{"Quality ordering", "fr;q=0.5,es;q=0.9", "", "es"},
		{"Unsupported falls back", "ja-JP", "", "en"},
		{"Empty header", "", "", "en"},
		{"Garbage header", ";;;", "", "en"},
		{"Unsupported preference ignored", "fr", "xx", "fr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.accept, tt.preferred))
		})
	}
}

func TestLoad_MissingLocale(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": &fstest.MapFile{Data: []byte("name: English\nmessages:\n  a: b\n")},
	}
	_, err := Load(fsys)
	assert.Error(t, err)
}
