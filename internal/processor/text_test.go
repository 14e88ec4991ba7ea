package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "only whitespace", raw: " \n\t\n  ", want: ""},
		{name: "collapses inner runs", raw: "  第一题   选择\t正确答案  ", want: "第一题 选择 正确答案"},
		{name: "drops blank lines", raw: "A. 北京\n\n   \nB. 上海\n", want: "A. 北京\nB. 上海"},
		{name: "already clean", raw: "hello world\n你好", want: "hello world\n你好"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Stats
	}{
		{
			name: "empty",
			text: "",
			want: Stats{},
		},
		{
			name: "mixed question",
			text: "你好A.B.1?",
			want: Stats{TotalChars: 8, ChineseChars: 2, EnglishChars: 2, DigitChars: 1, Lines: 1, Questions: 1, Options: 2},
		},
		{
			name: "fullwidth question mark counted as rune",
			text: "A1？B2",
			want: Stats{TotalChars: 5, EnglishChars: 2, DigitChars: 2, Lines: 1, Questions: 1},
		},
		{
			name: "multiple lines and options",
			text: "1. 下列哪个是首都?\nA. 北京 B. 上海\nC. 广州 D. 深圳",
			want: Stats{TotalChars: 35, ChineseChars: 15, EnglishChars: 4, DigitChars: 1, Lines: 3, Questions: 1, Options: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.text))
		})
	}
}

func TestCountChinese(t *testing.T) {
	assert.Equal(t, 0, CountChinese("hello 123"))
	assert.Equal(t, 4, CountChinese("中文OCR识别"))
	assert.False(t, IsChinese('。'))
	assert.True(t, IsChinese('一'))
	assert.True(t, IsChinese('\u9fff'))
	assert.False(t, IsChinese('\ua000'))
}

func TestStatsAdd(t *testing.T) {
	a := Stats{TotalChars: 3, ChineseChars: 1, Lines: 1, Options: 2}
	b := Stats{TotalChars: 4, DigitChars: 2, Lines: 2, Questions: 1}

	assert.Equal(t, Stats{TotalChars: 7, ChineseChars: 1, DigitChars: 2, Lines: 3, Questions: 1, Options: 2}, a.Add(b))
	assert.Equal(t, a, a.Add(Stats{}))
}
