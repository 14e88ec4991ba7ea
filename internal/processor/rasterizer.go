/**
 * PDF rasterizer
 *
 * pdfcpu validates the document and reports page geometry; poppler's pdftoppm
 * renders each page to PNG inside a scratch directory that is always removed.
 */

package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

// DefaultDPI is the rendering resolution used when none is requested.
const DefaultDPI = 400

// PopplerRasterizer renders PDF pages with the pdftoppm binary
type PopplerRasterizer struct {
	pdftoppmPath string
	tempDir      string
	logger       *logging.Logger
}

// RasterizerConfig holds rasterizer configuration
type RasterizerConfig struct {
	PdftoppmPath string
	TempDir      string
}

// NewPopplerRasterizer creates a new rasterizer
func NewPopplerRasterizer(cfg RasterizerConfig) *PopplerRasterizer {
	if cfg.PdftoppmPath == "" {
		cfg.PdftoppmPath = "pdftoppm"
	}
	return &PopplerRasterizer{
		pdftoppmPath: cfg.PdftoppmPath,
		tempDir:      cfg.TempDir,
		logger:       logging.NewLogger("rasterizer"),
	}
}

// Rasterize renders every page of documentPath at dpi. A document that cannot
// be opened, has no pages or fails to render yields a DOCUMENT_UNREADABLE
// error and no images.
func (r *PopplerRasterizer) Rasterize(ctx context.Context, documentPath string, dpi int) ([]PageImage, error) {
	if dpi <= 0 {
		return nil, errors.NewDocumentUnreadableError(documentPath, fmt.Errorf("dpi must be positive, got %d", dpi))
	}

	if _, err := os.Stat(documentPath); err != nil {
		return nil, errors.NewDocumentUnreadableError(documentPath, err)
	}

	pageCount, err := api.PageCountFile(documentPath)
	if err != nil {
		return nil, errors.NewDocumentUnreadableError(documentPath, fmt.Errorf("failed to read PDF: %w", err))
	}
	if pageCount == 0 {
		return nil, errors.NewDocumentUnreadableError(documentPath, fmt.Errorf("document has no pages"))
	}

	r.logger.Info("PDF opened", "path", documentPath, "pages", pageCount, "dpi", dpi)
	if dims, err := api.PageDimsFile(documentPath); err == nil {
		for i, d := range dims {
			r.logger.Info("Page size", "page", i+1, "width", fmt.Sprintf("%.1f", d.Width), "height", fmt.Sprintf("%.1f", d.Height))
		}
	} else {
		r.logger.Debug("Page dimensions unavailable", "error", err)
	}

	workDir, err := os.MkdirTemp(r.tempDir, "pdfocr-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pages := make([]PageImage, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		img, err := r.renderPage(ctx, documentPath, workDir, page, dpi)
		if err != nil {
			return nil, errors.NewDocumentUnreadableError(documentPath, err)
		}
		pages = append(pages, PageImage{Index: page, Image: img})
		r.logger.Info("Page rasterized", "page", page, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	}

	return pages, nil
}

func (r *PopplerRasterizer) renderPage(ctx context.Context, documentPath, workDir string, page, dpi int) (image.Image, error) {
	prefix := filepath.Join(workDir, fmt.Sprintf("page-%d", page))
	args := []string{
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-singlefile",
		documentPath,
		prefix,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.pdftoppmPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w: %s", page, err, stderr.String())
	}

	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", page, err)
	}
	return img, nil
}
