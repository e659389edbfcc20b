// Package resize implements core.ImageProcessor on top of the imaging library:
// the input format is detected from the bytes, the image is resampled to the
// requested size and encoded back into the same format.
package resize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/sevigo/resizer/internal/core"
)

// DefaultMaxPixels bounds both the decoded source and the resized output.
// An NRGBA image of this size takes 160 MiB.
const DefaultMaxPixels int64 = 40_000_000

// Pipeline stages reported in *core.ProcessingError.
const (
	StageDecode = "decode"
	StageResize = "resize"
	StageEncode = "encode"
)

var filters = map[string]imaging.ResampleFilter{
	"lanczos":    imaging.Lanczos,
	"catmullrom": imaging.CatmullRom,
	"linear":     imaging.Linear,
	"box":        imaging.Box,
	"nearest":    imaging.NearestNeighbor,
}

// ParseFilter maps a filter name to an imaging resampling filter.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	f, ok := filters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
	return f, nil
}

// FilterNames lists the accepted resampling filter names in sorted order.
func FilterNames() []string {
	return slices.Sorted(maps.Keys(filters))
}

// Option customises a Processor.
type Option func(*Processor)

// WithFilter sets the resampling filter. The default is Lanczos.
func WithFilter(f imaging.ResampleFilter) Option {
	return func(p *Processor) { p.filter = f }
}

// WithJPEGQuality sets the quality used when the output is JPEG.
func WithJPEGQuality(q int) Option {
	return func(p *Processor) {
		if q > 0 && q <= 100 {
			p.jpegQuality = q
		}
	}
}

// WithMaxPixels sets the pixel budget for source and target images.
func WithMaxPixels(n int64) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxPixels = n
		}
	}
}

// Processor decodes, resizes and re-encodes images.
type Processor struct {
	filter      imaging.ResampleFilter
	jpegQuality int
	maxPixels   int64
	logger      *slog.Logger
}

// NewProcessor creates a processor using Lanczos resampling unless overridden.
func NewProcessor(logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		filter:      imaging.Lanczos,
		jpegQuality: 95,
		maxPixels:   DefaultMaxPixels,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process resizes payload to params.Width x params.Height. When exactly one
// dimension is zero the other one is derived from the source aspect ratio.
// Source and target sizes are checked against the pixel budget before any
// pixel buffer is allocated; an oversized allocation would abort the process.
func (p *Processor) Process(_ context.Context, payload []byte, params core.Params) ([]byte, error) {
	if params.Width == 0 && params.Height == 0 {
		return nil, core.NewProcessingError(StageResize, core.ErrInvalidSize)
	}

	format, src, err := DetectFormat(payload)
	if err != nil {
		return nil, core.NewProcessingError(StageDecode, err)
	}
	if src.Width <= 0 || src.Height <= 0 || int64(src.Width)*int64(src.Height) > p.maxPixels {
		return nil, core.NewProcessingError(StageDecode,
			fmt.Errorf("%w: source is %dx%d", core.ErrImageTooLarge, src.Width, src.Height))
	}

	dstW, dstH := targetSize(src.Width, src.Height, params)
	// imaging resizes horizontally first, so a dstW x srcH buffer exists too.
	if dstW*dstH > float64(p.maxPixels) || dstW*float64(src.Height) > float64(p.maxPixels) {
		return nil, core.NewProcessingError(StageResize,
			fmt.Errorf("%w: target is %.0fx%.0f", core.ErrImageTooLarge, dstW, dstH))
	}

	img, err := imaging.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, core.NewProcessingError(StageDecode, err)
	}

	dst := imaging.Resize(img, int(params.Width), int(params.Height), p.filter)
	p.logger.Debug("image resized",
		"format", format.String(),
		"source", img.Bounds().Size().String(),
		"target", dst.Bounds().Size().String(),
	)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, format, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return nil, core.NewProcessingError(StageEncode, err)
	}
	return buf.Bytes(), nil
}

// targetSize returns the output size imaging.Resize produces for a source of
// srcW x srcH. A zero dimension follows the source aspect ratio.
func targetSize(srcW, srcH int, params core.Params) (float64, float64) {
	w, h := float64(params.Width), float64(params.Height)
	switch {
	case w == 0:
		w = math.Max(1, math.Floor(h*float64(srcW)/float64(srcH)+0.5))
	case h == 0:
		h = math.Max(1, math.Floor(w*float64(srcH)/float64(srcW)+0.5))
	}
	return w, h
}

// DetectFormat sniffs the image format and the declared dimensions from the
// header of payload without decoding any pixels.
func DetectFormat(payload []byte) (imaging.Format, image.Config, error) {
	if len(payload) == 0 {
		return 0, image.Config{}, fmt.Errorf("empty image payload")
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return 0, image.Config{}, fmt.Errorf("unrecognised image data: %w", err)
	}
	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return 0, image.Config{}, fmt.Errorf("unsupported image format %q: %w", name, err)
	}
	return format, cfg, nil
}
