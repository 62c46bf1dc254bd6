package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		explicit string
		env      map[string]string
		want     language.Tag
	}{
		{"default english", "", nil, language.English},
		{"explicit chinese", "zh-CN", nil, language.SimplifiedChinese},
		{"posix LANG", "", map[string]string{"LANG": "zh_CN.UTF-8"}, language.SimplifiedChinese},
		{"LC_ALL wins over LANG", "", map[string]string{"LC_ALL": "en_US.UTF-8", "LANG": "zh_CN.UTF-8"}, language.English},
		{"LANGUAGE list", "", map[string]string{"LANGUAGE": "zh_CN:en"}, language.SimplifiedChinese},
		{"C locale skipped", "", map[string]string{"LC_ALL": "C", "LANG": "zh_CN.UTF-8"}, language.SimplifiedChinese},
		{"explicit beats env", "en", map[string]string{"LANG": "zh_CN.UTF-8"}, language.English},
		{"unsupported falls back", "fr-FR", nil, language.English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := Detect(tt.explicit, env(tt.env))
			assert.Equal(t, tt.want, l.Tag())
		})
	}
}

func TestLocalizer_T(t *testing.T) {
	t.Parallel()

	en := New(language.English)
	zh := New(language.SimplifiedChinese)

	assert.Equal(t, "Peers: 3", en.T(KeyPeers, 3))
	assert.Equal(t, "连接数: 3", zh.T(KeyPeers, 3))
	assert.Equal(t, "Connected", en.T(KeyConnected))
	assert.Equal(t, "已连接", zh.T(KeyConnected))
}

func TestLocalizer_UnknownKey(t *testing.T) {
	t.Parallel()

	zh := New(language.SimplifiedChinese)
	assert.Equal(t, "no translation here", zh.T("no translation here"))
}

func TestCatalogComplete(t *testing.T) {
	t.Parallel()

	zh := New(language.SimplifiedChinese)
	for key := range zhHans {
		assert.NotEqual(t, key, zh.T(key), "untranslated: %q", key)
	}
}
