package processor

import (
	"context"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

// Strategies returns the fixed recognition order: both languages combined,
// then primary alone, then secondary alone.
func Strategies(primary, secondary string) []Strategy {
	return []Strategy{
		{Name: "mixed", Language: primary + "+" + secondary},
		{Name: primary, Language: primary},
		{Name: secondary, Language: secondary},
	}
}

// StrategySelector runs every strategy against the OCR engine and keeps the
// output richest in CJK ideographs.
//
// The score is a heuristic for scanned Chinese-dominant pages: it assumes a
// correct recognition yields more ideographs than a wrong one. It says nothing
// about OCR confidence, and on English-only pages every candidate scores zero
// so the strategy order alone decides.
type StrategySelector struct {
	engine     OCREngine
	strategies []Strategy
	logger     *logging.Logger
}

// NewStrategySelector creates a selector over the given strategies, tried in order
func NewStrategySelector(engine OCREngine, strategies []Strategy) *StrategySelector {
	return &StrategySelector{
		engine:     engine,
		strategies: strategies,
		logger:     logging.NewLogger("strategy"),
	}
}

// SelectBest returns the winning attempt, or nil when no strategy produced
// non-blank text. The first non-blank result becomes the running best and a
// later one replaces it only with a strictly higher ideograph count. Engine
// errors skip the strategy. The returned text is trimmed.
func (s *StrategySelector) SelectBest(ctx context.Context, page int, img image.Image) *Attempt {
	var best *Attempt

	for _, strategy := range s.strategies {
		if ctx.Err() != nil {
			s.logger.Warn("Strategy selection interrupted", "page", page, "error", ctx.Err())
			break
		}

		raw, err := s.engine.Recognize(ctx, img, strategy.Language)
		if err != nil {
			failure := errors.NewStrategyInvocationError(page, strategy.Name, err)
			s.logger.Warn("OCR strategy failed", "page", page, "strategy", strategy.Name, "error", failure)
			continue
		}

		text := strings.TrimSpace(raw)
		if text == "" {
			s.logger.Info("OCR strategy returned no text", "page", page, "strategy", strategy.Name)
			continue
		}

		attempt := &Attempt{
			Strategy:     strategy,
			Text:         text,
			ChineseChars: CountChinese(text),
		}
		s.logger.Info("OCR strategy result", "page", page, "strategy", strategy.Name,
			"chars", utf8.RuneCountInString(text), "chinese", attempt.ChineseChars)

		if best == nil || attempt.ChineseChars > best.ChineseChars {
			best = attempt
		}
	}

	if best != nil {
		s.logger.Info("Strategy selected", "page", page, "strategy", best.Strategy.Name)
	}
	return best
}
