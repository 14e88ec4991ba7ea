package processor

import (
	"context"
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategiesOrder(t *testing.T) {
	strategies := Strategies("chi_sim", "eng")
	require.Len(t, strategies, 3)
	assert.Equal(t, Strategy{Name: "mixed", Language: "chi_sim+eng"}, strategies[0])
	assert.Equal(t, Strategy{Name: "chi_sim", Language: "chi_sim"}, strategies[1])
	assert.Equal(t, Strategy{Name: "eng", Language: "eng"}, strategies[2])
}

func TestSelectBest(t *testing.T) {
	img := solidImage(4, 4, color.White)

	tests := []struct {
		name     string
		texts    map[string]string
		errs     map[string]error
		wantNil  bool
		wantName string
		wantText string
	}{
		{
			name:     "most ideographs wins",
			texts:    map[string]string{"chi_sim+eng": "你好 hello", "chi_sim": "你好世界", "eng": "hello"},
			wantName: "chi_sim",
			wantText: "你好世界",
		},
		{
			name:     "tie keeps the earlier strategy",
			texts:    map[string]string{"chi_sim+eng": "你好 A", "chi_sim": "你好", "eng": "B"},
			wantName: "mixed",
			wantText: "你好 A",
		},
		{
			name:     "first non-blank wins with zero ideographs",
			texts:    map[string]string{"chi_sim+eng": "  ", "chi_sim": "", "eng": "hello world"},
			wantName: "eng",
			wantText: "hello world",
		},
		{
			name:     "failing strategy is skipped",
			texts:    map[string]string{"chi_sim": "中文", "eng": "english"},
			errs:     map[string]error{"chi_sim+eng": fmt.Errorf("tesseract crashed")},
			wantName: "chi_sim",
			wantText: "中文",
		},
		{
			name:    "no text anywhere",
			texts:   map[string]string{"chi_sim+eng": "", "chi_sim": "\n", "eng": " "},
			wantNil: true,
		},
		{
			name: "every strategy fails",
			errs: map[string]error{
				"chi_sim+eng": fmt.Errorf("boom"),
				"chi_sim":     fmt.Errorf("boom"),
				"eng":         fmt.Errorf("boom"),
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{texts: tt.texts, errs: tt.errs}
			selector := NewStrategySelector(engine, Strategies("chi_sim", "eng"))

			best := selector.SelectBest(context.Background(), 1, img)

			assert.Equal(t, []string{"chi_sim+eng", "chi_sim", "eng"}, engine.calls)
			if tt.wantNil {
				assert.Nil(t, best)
				return
			}
			require.NotNil(t, best)
			assert.Equal(t, tt.wantName, best.Strategy.Name)
			assert.Equal(t, tt.wantText, best.Text)
			assert.Equal(t, CountChinese(tt.wantText), best.ChineseChars)
		})
	}
}

func TestSelectBestStopsOnCancelledContext(t *testing.T) {
	engine := &fakeEngine{texts: map[string]string{"chi_sim+eng": "你好"}}
	selector := NewStrategySelector(engine, Strategies("chi_sim", "eng"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Nil(t, selector.SelectBest(ctx, 1, solidImage(2, 2, color.White)))
	assert.Empty(t, engine.calls)
}
