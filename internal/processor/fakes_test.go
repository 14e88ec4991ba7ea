package processor

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/adverant/nexus/pdfocr-worker/internal/storage"
)

// fakeEngine answers by language; byWidth overrides the answer for images of a given width.
type fakeEngine struct {
	mu      sync.Mutex
	texts   map[string]string
	errs    map[string]error
	byWidth map[int]map[string]string
	calls   []string
	// onCall runs before each answer
	onCall func(img image.Image, language string)
}

func (f *fakeEngine) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, language)
	f.mu.Unlock()

	if f.onCall != nil {
		f.onCall(img, language)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := f.errs[language]; ok {
		return "", err
	}
	if texts, ok := f.byWidth[img.Bounds().Dx()]; ok {
		return texts[language], nil
	}
	return f.texts[language], nil
}

type fakeRasterizer struct {
	pages []PageImage
	err   error
	dpi   int
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, documentPath string, dpi int) ([]PageImage, error) {
	f.dpi = dpi
	return f.pages, f.err
}

type fakeStore struct {
	updates []*storage.JobUpdate
	records []*storage.ReportRecord
	saveErr error
}

func (f *fakeStore) UpdateJobStatus(ctx context.Context, update *storage.JobUpdate) error {
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeStore) SaveReport(ctx context.Context, record *storage.ReportRecord) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.records = append(f.records, record)
	return "rep-1", nil
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
