package validate_test

import (
	"testing"

	"github.com/fwojciec/fridge/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validate.Validator {
	t.Helper()
	v, err := validate.New()
	require.NoError(t, err)
	return v
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	v := newValidator(t)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "根據你的食材，", "根據你的食材，"},
		{"empty", "", ""},
		{"script removed with content", "<script>alert(1)</script>炒飯", "炒飯"},
		{"tags stripped", "<b>粗體</b>", "粗體"},
		{"encoded markup does not resurface", "&lt;img src=x onerror=alert(1)&gt;", ""},
		{"ansi stripped", "\x1b[31m紅\x1b[0m", "紅"},
		{"javascript link", "[點我](javascript:alert(1))", "[點我](#)"},
		{"safe link kept", "[食譜](https://example.com/r)", "[食譜](https://example.com/r)"},
		{"entities decoded once", "a & b < c", "a & b < c"},
		{"apostrophe", "it's", "it's"},
		{"newlines and tabs kept", "第一步\n第二步\t完成", "第一步\n第二步\t完成"},
		{"hidden characters removed", "豆\u200b腐\u202e", "豆腐"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, v.SanitizeText(tt.in))
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	t.Parallel()
	v := newValidator(t)
	inputs := []string{
		"<div onclick=\"x()\">hi</div>",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
		"[x](JaVaScRiPt:alert(1)) and ![y](data:text/html;base64,AAAA)",
		"1 < 2 && 3 > 2",
		"\x1b]8;;http://evil\x07link\x1b]8;;\x07",
		"普通的文字\n",
	}
	for _, in := range inputs {
		once := v.SanitizeText(in)
		assert.Equal(t, once, v.SanitizeText(once), "input %q", in)
		assert.NotContains(t, once, "<script")
		assert.NotContains(t, once, "javascript:")
	}
}
