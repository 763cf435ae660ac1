// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は管理者や公開フォームから受け取ったテキストからHTMLを取り除き、
// プレーンテキストとして保存できる形にする。
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はテキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はHTMLタグを除去したプレーンテキストを返す。
	// script, styleタグは中身ごと除去する。前後の空白は取り除く。
	Sanitize(raw string) string
}

// angleBrackets はエンティティ復元後に残った山括弧を除去する。
var angleBrackets = strings.NewReplacer("<", "", ">", "")

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
// すべてのタグを許可しないStrictPolicyを使う。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.TrimSpace(angleBrackets.Replace(text))
}

// IsHTTPURL はhttpまたはhttpsの絶対URLかどうかを返す。
// サムネイルや動画URLなど、クライアントがそのまま開くURLの検証に使う。
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
