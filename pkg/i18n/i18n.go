// Package i18n holds the user-facing strings of the terminal UI in English and
// Simplified Chinese.
//
// A Localizer is built once at startup and passed to whoever renders text;
// there is no package-level current language.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Keys are the English format strings, so an unknown key
// renders as itself.
const (
	KeySent           = "Sent: %s"
	KeyReceived       = "Received: %s"
	KeyConnected      = "Connected"
	KeyDisconnected   = "Disconnected"
	KeyPeers          = "Peers: %d"
	KeyDropped        = "Dropped: %d"
	KeyTarget         = "Target: %s"
	KeyAllPeers       = "all peers"
	KeyNoPeer         = "none"
	KeySendPane       = "Send"
	KeyReceivePane    = "Receive"
	KeyCompose        = "Compose (%s)"
	KeyFormatText     = "Text"
	KeyFormatHex      = "Hex"
	KeyHintsNormal    = "i: compose  Tab: target  x: hex  j: json  c: clear  q: quit"
	KeyHintsCompose   = "Enter: send  Esc: cancel  Ctrl+T: text/hex"
	KeySendFailed     = "Send failed: %v"
	KeyListening      = "Listening on %s"
	KeyConnectedTo    = "Connected to %s"
	KeyStopping       = "Stopping..."
	KeyPromptMethod   = "Method"
	KeyPromptURL      = "URL"
	KeyPromptBody     = "Body"
	KeyPromptHeaders  = "Headers (one 'Key: Value' per line)"
	KeyInvalidHex     = "Invalid hex input: %v"
	KeyPeerListHeader = "Connected peers:"
)

var zhHans = map[string]string{
	KeySent:           "已发送: %s",
	KeyReceived:       "已接收: %s",
	KeyConnected:      "已连接",
	KeyDisconnected:   "未连接",
	KeyPeers:          "连接数: %d",
	KeyDropped:        "丢弃: %d",
	KeyTarget:         "目标: %s",
	KeyAllPeers:       "全部连接",
	KeyNoPeer:         "无",
	KeySendPane:       "发送",
	KeyReceivePane:    "接收",
	KeyCompose:        "输入 (%s)",
	KeyFormatText:     "文本",
	KeyFormatHex:      "十六进制",
	KeyHintsNormal:    "i: 输入  Tab: 目标  x: 十六进制  j: JSON  c: 清空  q: 退出",
	KeyHintsCompose:   "Enter: 发送  Esc: 取消  Ctrl+T: 文本/十六进制",
	KeySendFailed:     "发送失败: %v",
	KeyListening:      "正在监听 %s",
	KeyConnectedTo:    "已连接到 %s",
	KeyStopping:       "正在停止...",
	KeyPromptMethod:   "请求方法",
	KeyPromptURL:      "请求地址",
	KeyPromptBody:     "请求体",
	KeyPromptHeaders:  "请求头 (每行一个 'Key: Value')",
	KeyInvalidHex:     "十六进制输入无效: %v",
	KeyPeerListHeader: "当前连接:",
}

var supported = []language.Tag{language.English, language.SimplifiedChinese}

var matcher = language.NewMatcher(supported)

// Localizer renders message keys in one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Localizer for the closest supported match of tag.
func New(tag language.Tag) *Localizer {
	_, idx, _ := matcher.Match(tag)
	best := supported[idx]
	return &Localizer{
		tag:     best,
		printer: message.NewPrinter(best, message.Catalog(newCatalog())),
	}
}

// Detect builds a Localizer from an explicit language setting, falling back
// to LC_ALL, LANGUAGE and LANG as read through getenv. English is the default.
func Detect(explicit string, getenv func(string) string) *Localizer {
	candidates := []string{explicit}
	if getenv != nil {
		candidates = append(candidates, getenv("LC_ALL"), getenv("LANGUAGE"), getenv("LANG"))
	}
	for _, c := range candidates {
		if tag, ok := parseLocale(c); ok {
			return New(tag)
		}
	}
	return New(language.English)
}

// Tag returns the selected language.
func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// T renders key with args.
func (l *Localizer) T(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// parseLocale accepts BCP 47 tags and POSIX locales like "zh_CN.UTF-8".
// LANGUAGE may hold a colon-separated list; the first entry wins.
func parseLocale(s string) (language.Tag, bool) {
	s, _, _ = strings.Cut(s, ":")
	s, _, _ = strings.Cut(s, ".")
	s, _, _ = strings.Cut(s, "@")
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, zh := range zhHans {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.SimplifiedChinese, key, zh)
	}
	return b
}
