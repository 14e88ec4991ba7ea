/**
 * Tesseract OCR - the OCR engine adapter
 *
 * One gosseract client per invocation, released on every exit path.
 * Engine settings come from TesseractConfig; nothing is read from process state.
 */

package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR handles OCR using Tesseract
type TesseractOCR struct {
	config    TesseractConfig
	recognize func(data []byte, language string) (string, error)
}

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	// TessdataPrefix points at the traineddata directory. Empty uses the library default.
	TessdataPrefix string
	// DPI is passed to Tesseract as user_defined_dpi when positive.
	DPI int
	// Timeout bounds a single invocation. Zero means no deadline.
	Timeout time.Duration
}

// NewTesseractOCR creates a new Tesseract OCR instance
func NewTesseractOCR(cfg TesseractConfig) *TesseractOCR {
	t := &TesseractOCR{config: cfg}
	t.recognize = t.recognizeBytes
	return t
}

type recognition struct {
	text string
	err  error
}

// Recognize runs Tesseract on img with the given language identifier.
// Expiry of the configured timeout or cancellation of ctx is reported as an
// error wrapping ctx.Err(). gosseract cannot be interrupted, so the abandoned
// recognition keeps running in the background until Tesseract returns.
func (t *TesseractOCR) Recognize(ctx context.Context, img image.Image, language string) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}

	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	done := make(chan recognition, 1)
	go func() {
		text, err := t.recognize(buf.Bytes(), language)
		done <- recognition{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("tesseract %s: %w", language, ctx.Err())
	}
}

func (t *TesseractOCR) recognizeBytes(data []byte, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.config.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.config.TessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}

	if langs := splitLanguages(language); len(langs) > 0 {
		if err := client.SetLanguage(langs...); err != nil {
			return "", fmt.Errorf("failed to set language %s: %w", language, err)
		}
	}

	if t.config.DPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(t.config.DPI)); err != nil {
			return "", fmt.Errorf("failed to set dpi: %w", err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return text, nil
}

// splitLanguages turns "chi_sim+eng" into ["chi_sim", "eng"].
func splitLanguages(language string) []string {
	var langs []string
	for _, l := range strings.Split(language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}
