package processor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/adverant/nexus/pdfocr-worker/internal/errors"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

// Default enhancement factors tuned for scanned mixed Chinese/English pages.
const (
	DefaultContrast   = 2.2
	DefaultSharpness  = 1.8
	DefaultBrightness = 1.1
	DefaultSaturation = 1.2
)

// EffectFunc transforms src by factor. A factor of 1 returns an equal image.
// Implementations must not modify src.
type EffectFunc func(src *image.NRGBA, factor float64) (*image.NRGBA, error)

// Effect is one step of the enhancement chain.
type Effect struct {
	Name   string
	Factor float64
	Apply  EffectFunc
}

// Effects builds the chain contrast, sharpness, brightness, saturation in that order.
func Effects(contrast, sharpness, brightness, saturation float64) []Effect {
	return []Effect{
		{Name: "contrast", Factor: contrast, Apply: Contrast},
		{Name: "sharpness", Factor: sharpness, Apply: Sharpness},
		{Name: "brightness", Factor: brightness, Apply: Brightness},
		{Name: "saturation", Factor: saturation, Apply: Saturation},
	}
}

// DefaultEffects is Effects with the default factors.
func DefaultEffects() []Effect {
	return Effects(DefaultContrast, DefaultSharpness, DefaultBrightness, DefaultSaturation)
}

// Enhancer applies an ordered chain of effects to page images.
type Enhancer struct {
	effects []Effect
	logger  *logging.Logger
}

// NewEnhancer creates an enhancer for the given chain
func NewEnhancer(effects []Effect) *Enhancer {
	return &Enhancer{
		effects: effects,
		logger:  logging.NewLogger("enhancer"),
	}
}

// Enhance converts img to opaque RGB and runs every effect in order on the
// output of the previous one. A failing effect is skipped: the chain continues
// from the image as it was before that step and the failure is returned as a
// warning. The input image is never modified.
func (e *Enhancer) Enhance(img image.Image) (*image.NRGBA, []error) {
	current := toRGB(img)
	var warnings []error

	for _, effect := range e.effects {
		next, err := applyEffect(effect, current)
		if err != nil {
			warning := errors.NewEnhancementStepError(effect.Name, effect.Factor, err)
			e.logger.Warn("Enhancement step skipped", "effect", effect.Name, "factor", effect.Factor, "error", err)
			warnings = append(warnings, warning)
			continue
		}
		e.logger.Debug("Enhancement applied", "effect", effect.Name, "factor", effect.Factor)
		current = next
	}

	return current, warnings
}

func applyEffect(effect Effect, src *image.NRGBA) (out *image.NRGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("effect panicked: %v", r)
		}
	}()

	if effect.Apply == nil {
		return nil, fmt.Errorf("effect %s has no implementation", effect.Name)
	}
	out, err = effect.Apply(src, effect.Factor)
	if err == nil && out == nil {
		err = fmt.Errorf("effect %s returned no image", effect.Name)
	}
	return out, err
}

// toRGB copies img into an origin-anchored NRGBA buffer with every alpha
// forced opaque, keeping the stored color channels as they are.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		// draw would premultiply and lose the channels of transparent pixels
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[i:i+b.Dx()*4])
		}
	} else {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func checkFactor(src *image.NRGBA, factor float64) error {
	if src == nil || src.Rect.Empty() {
		return fmt.Errorf("empty image")
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return fmt.Errorf("invalid factor %v", factor)
	}
	return nil
}

// Contrast blends src away from (factor > 1) or toward a flat image of its mean luminance.
func Contrast(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	if err := checkFactor(src, factor); err != nil {
		return nil, err
	}
	gray := imaging.Grayscale(src)
	var sum float64
	for i := 0; i < len(gray.Pix); i += 4 {
		sum += float64(gray.Pix[i])
	}
	mean := math.Floor(sum/float64(len(gray.Pix)/4) + 0.5)
	return blendConstant(src, mean, factor), nil
}

// Sharpness blends src away from a smoothed copy of itself.
func Sharpness(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	if err := checkFactor(src, factor); err != nil {
		return nil, err
	}
	smooth := imaging.Convolve3x3(src, [9]float64{
		1, 1, 1,
		1, 5, 1,
		1, 1, 1,
	}, &imaging.ConvolveOptions{Normalize: true})
	return blend(smooth, src, factor), nil
}

// Brightness scales every color channel by factor.
func Brightness(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	if err := checkFactor(src, factor); err != nil {
		return nil, err
	}
	return blendConstant(src, 0, factor), nil
}

// Saturation blends src away from its grayscale version.
func Saturation(src *image.NRGBA, factor float64) (*image.NRGBA, error) {
	if err := checkFactor(src, factor); err != nil {
		return nil, err
	}
	return blend(imaging.Grayscale(src), src, factor), nil
}

// blend computes base + factor*(src-base) per color channel, keeping src alpha.
// base and src must share dimensions.
func blend(base, src *image.NRGBA, factor float64) *image.NRGBA {
	out := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			b := float64(base.Pix[i+c])
			out.Pix[i+c] = clamp8(b + factor*(float64(src.Pix[i+c])-b))
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

func blendConstant(src *image.NRGBA, base float64, factor float64) *image.NRGBA {
	out := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			out.Pix[i+c] = clamp8(base + factor*(float64(src.Pix[i+c])-base))
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
