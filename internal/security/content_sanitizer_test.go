package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSanitizeText_StripsMarkup はHTMLタグが除去されることを検証する。
func TestSanitizeText_StripsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Hello, please join us.", "Hello, please join us."},
		{"scriptタグは内容ごと除去", `Hi<script>alert("x")</script> there`, "Hi there"},
		{"書式タグは除去", "<p><strong>Welcome</strong> aboard</p>", "Welcome aboard"},
		{"イベント属性付きタグも除去", `<img src=x onerror="alert(1)">Hello`, "Hello"},
		{"リンクはテキストのみ残る", `<a href="https://evil.example">click</a>`, "click"},
		{"エンティティはアンエスケープ", "Terms & conditions apply", "Terms & conditions apply"},
		{"前後の空白を除去", "   padded   ", "padded"},
		{"改行は保持", "line1\nline2", "line1\nline2"},
		{"制御文字は除去", "bell\x07char", "bellchar"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeText(tt.input, 0)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeText_TruncatesByRunes はマルチバイト文字を壊さずに切り詰めることを検証する。
func TestSanitizeText_TruncatesByRunes(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := strings.Repeat("あ", 1500)
	got := sanitizer.SanitizeText(input, 1000)

	if n := utf8.RuneCountInString(got); n != 1000 {
		t.Errorf("rune count = %d, want 1000", n)
	}
	if !utf8.ValidString(got) {
		t.Error("truncated output must be valid UTF-8")
	}
}

// TestSanitizeText_Idempotent は同一入力で同一出力となることを検証する。
func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := `<b>Join</b> our <i>lending</i> network & grow`

	first := sanitizer.SanitizeText(input, 100)
	second := sanitizer.SanitizeText(input, 100)
	if first != second {
		t.Errorf("outputs differ: %q vs %q", first, second)
	}
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
