// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力した自由記述テキスト（招待メッセージ等）から
// HTMLタグを除去し、プレーンテキストとして保存できる形に正規化する。
// bluemondayのStrictPolicyを使用し、すべてのタグと属性を除去する。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由記述テキストのサニタイズ機能のインターフェース。
type TextSanitizerService interface {
	// SanitizeText はHTMLタグと制御文字を除去し、前後の空白を削ってから
	// maxRunes文字で切り詰めたプレーンテキストを返す。maxRunes<=0の場合は切り詰めない。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string, maxRunes int) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はプレーンテキストに正規化する。
// StrictPolicyはエンティティをエスケープするため、保存前にアンエスケープする。
// 表示側で改めてエスケープされる前提。
func (s *textSanitizer) SanitizeText(raw string, maxRunes int) string {
	if raw == "" {
		return ""
	}

	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
	text = strings.TrimSpace(text)

	if maxRunes > 0 {
		runes := []rune(text)
		if len(runes) > maxRunes {
			text = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}

	return text
}
