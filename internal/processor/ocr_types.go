/**
 * OCR Types - Shared data structures for the extraction pipeline
 */

package processor

import (
	"context"
	"image"
	"time"
)

// PageImage is one rasterized page. Index is 1-based.
type PageImage struct {
	Index int
	Image image.Image
}

// Rasterizer renders every page of a PDF document.
type Rasterizer interface {
	Rasterize(ctx context.Context, documentPath string, dpi int) ([]PageImage, error)
}

// OCREngine recognizes text in an image using one language model identifier
// such as "chi_sim+eng" or "eng". An empty string is a valid result.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image, language string) (string, error)
}

// Strategy is one language configuration tried during recognition.
type Strategy struct {
	Name     string
	Language string
}

// Attempt is the outcome of one successful strategy invocation.
type Attempt struct {
	Strategy     Strategy
	Text         string
	ChineseChars int
}

// Stats is the content analysis record of one text. Documents sum these field-wise.
type Stats struct {
	TotalChars   int `json:"totalChars"`
	ChineseChars int `json:"chineseChars"`
	EnglishChars int `json:"englishChars"`
	DigitChars   int `json:"digitChars"`
	Lines        int `json:"lines"`
	Questions    int `json:"questions"`
	Options      int `json:"options"`
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		TotalChars:   s.TotalChars + o.TotalChars,
		ChineseChars: s.ChineseChars + o.ChineseChars,
		EnglishChars: s.EnglishChars + o.EnglishChars,
		DigitChars:   s.DigitChars + o.DigitChars,
		Lines:        s.Lines + o.Lines,
		Questions:    s.Questions + o.Questions,
		Options:      s.Options + o.Options,
	}
}

// PageResult is the outcome of the page pipeline for one page.
// Recognized is false when no strategy produced text; Stats is then all zero.
type PageResult struct {
	Index      int    `json:"index"`
	Strategy   string `json:"strategy,omitempty"`
	Text       string `json:"text,omitempty"`
	Stats      Stats  `json:"stats"`
	Recognized bool   `json:"recognized"`
}

// Summary is the document-level aggregate written at the top of a report.
type Summary struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	PageCount int       `json:"pageCount"`
	Stats     Stats     `json:"stats"`
}

// Elapsed is the wall-clock duration of the run.
func (s Summary) Elapsed() time.Duration {
	return s.End.Sub(s.Start)
}
