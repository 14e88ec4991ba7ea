package processor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

// PagePipeline runs enhancement, strategy selection, normalization and
// analysis for a single page.
type PagePipeline struct {
	enhancer *Enhancer
	selector *StrategySelector
	logger   *logging.Logger
}

// NewPagePipeline creates a page pipeline.
func NewPagePipeline(enhancer *Enhancer, selector *StrategySelector) *PagePipeline {
	return &PagePipeline{
		enhancer: enhancer,
		selector: selector,
		logger:   logging.NewLogger("pipeline"),
	}
}

// SamplePathFor gives every job its own sample file so concurrent jobs never
// share one: "out/sample.png" + "job-1" -> "out/sample_job-1.png".
// An empty base disables the sample.
func SamplePathFor(base, jobID string) string {
	if base == "" || jobID == "" {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + jobID + ext
}

// Process never fails: a page without recognizable text is returned with
// Recognized=false and zero stats. When samplePath is set the enhanced image
// of page 1 is saved there.
func (p *PagePipeline) Process(ctx context.Context, page PageImage, samplePath string) PageResult {
	enhanced, _ := p.enhancer.Enhance(page.Image)

	if page.Index == 1 && samplePath != "" {
		if err := imaging.Save(enhanced, samplePath); err != nil {
			p.logger.Warn("Failed to save enhanced sample", "path", samplePath, "error", err)
		} else {
			p.logger.Info("Enhanced sample saved", "path", samplePath)
		}
	}

	best := p.selector.SelectBest(ctx, page.Index, enhanced)
	if best == nil {
		p.logger.Warn("No text recognized", "page", page.Index)
		return PageResult{Index: page.Index}
	}

	text := Normalize(best.Text)
	return PageResult{
		Index:      page.Index,
		Strategy:   best.Strategy.Name,
		Text:       text,
		Stats:      Analyze(text),
		Recognized: true,
	}
}
