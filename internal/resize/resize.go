// Package resize scales a downloaded image by a factor and re-encodes it in
// the format family of the original file.
package resize

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	// registers the WEBP decoder with image.Decode / image.DecodeConfig
	_ "golang.org/x/image/webp"
)

// Format is the output encoding family.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// FormatForExt maps an original file extension to its output encoding.
// Anything that is not .png or .webp is written as JPEG.
func FormatForExt(ext string) Format {
	switch strings.ToLower(ext) {
	case ".png":
		return FormatPNG
	case ".webp":
		return FormatWebP
	default:
		return FormatJPEG
	}
}

// Output limits. MaxSide is the largest side a WEBP image can have; MaxPixels
// bounds the memory used by the resize buffers.
const (
	MaxSide   = 16383
	MaxPixels = 100_000_000
)

// TargetSize scales both dimensions and rounds half away from zero
// (math.Round), so 3x5 at 1.5 becomes 5x8. Each side is at least 1px.
// A result above MaxSide or MaxPixels is a *DimensionError.
func TargetSize(width, height int, scale float64) (int, int, error) {
	w := math.Round(float64(width) * scale)
	h := math.Round(float64(height) * scale)
	// compare as floats; an out-of-range float to int conversion is implementation-dependent
	if math.IsNaN(w) || math.IsNaN(h) || math.IsInf(w, 0) || math.IsInf(h, 0) ||
		w > MaxSide || h > MaxSide || w*h > MaxPixels {
		return 0, 0, &DimensionError{Width: width, Height: height, Scale: scale}
	}
	return max(int(w), 1), max(int(h), 1), nil
}

// DimensionError is returned when scaling would exceed the output limits.
type DimensionError struct {
	Width  int
	Height int
	Scale  float64
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("scale %g is too large for a %dx%d image (limit %d px per side, %d px total)",
		e.Scale, e.Width, e.Height, MaxSide, MaxPixels)
}

// OutputName builds the committed file name for an issue, e.g.
// upscaled-issue12-1700000000000.png.
func OutputName(issueNumber int, ts time.Time, ext string) string {
	return fmt.Sprintf("upscaled-issue%d-%d%s", issueNumber, ts.UnixMilli(), ext)
}

// MetadataError is returned when the input has no readable, positive
// dimensions.
type MetadataError struct {
	Path   string
	Width  int
	Height int
	Err    error
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image metadata for %s: %v", filepath.Base(e.Path), e.Err)
	}
	return fmt.Sprintf("invalid image metadata for %s: %dx%d", filepath.Base(e.Path), e.Width, e.Height)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// EncodeFunc writes img to w in one specific format.
type EncodeFunc func(w io.Writer, img image.Image) error

// Options controls output quality.
type Options struct {
	JPEGQuality  int
	WebPQuality  int
	SharpenSigma float64 // 0 disables the sharpening pass
}

// Result describes a finished resize.
type Result struct {
	Path         string
	Format       Format
	SourceWidth  int
	SourceHeight int
	Width        int
	Height       int
}

// Resizer resizes with a 3-lobe Lanczos kernel followed by a sharpening pass
// to counter the blur introduced by upsampling.
type Resizer struct {
	opts     Options
	encoders map[Format]EncodeFunc
}

// New creates a Resizer with the PNG, JPEG and WEBP encoders installed.
func New(opts Options) *Resizer {
	r := &Resizer{opts: opts}
	r.encoders = map[Format]EncodeFunc{
		FormatPNG: func(w io.Writer, img image.Image) error {
			return imaging.Encode(w, img, imaging.PNG)
		},
		FormatJPEG: func(w io.Writer, img image.Image) error {
			return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality))
		},
		FormatWebP: func(w io.Writer, img image.Image) error {
			options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(opts.WebPQuality))
			if err != nil {
				return fmt.Errorf("webp options: %w", err)
			}
			return webp.Encode(w, img, options)
		},
	}
	return r
}

// WithEncoder replaces the encoder used for format.
func (r *Resizer) WithEncoder(format Format, fn EncodeFunc) *Resizer {
	r.encoders[format] = fn
	return r
}

// ReadDimensions returns the pixel size recorded in the file header.
func ReadDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, &MetadataError{Path: path, Err: err}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, &MetadataError{Path: path, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, &MetadataError{Path: path, Width: cfg.Width, Height: cfg.Height}
	}
	return cfg.Width, cfg.Height, nil
}

// Resize scales input by scale and writes it to output, creating the output
// directory if needed. The encoding follows output's extension.
func (r *Resizer) Resize(input, output string, scale float64) (*Result, error) {
	srcW, srcH, err := ReadDimensions(input)
	if err != nil {
		return nil, err
	}
	width, height, err := TargetSize(srcW, srcH, scale)
	if err != nil {
		return nil, err
	}

	src, err := imaging.Open(input)
	if err != nil {
		return nil, &MetadataError{Path: input, Err: err}
	}

	dst := imaging.Resize(src, width, height, imaging.Lanczos)
	if r.opts.SharpenSigma > 0 {
		dst = imaging.Sharpen(dst, r.opts.SharpenSigma)
	}

	format := FormatForExt(filepath.Ext(output))
	if err := r.write(output, dst, format); err != nil {
		return nil, err
	}

	return &Result{
		Path:         output,
		Format:       format,
		SourceWidth:  srcW,
		SourceHeight: srcH,
		Width:        width,
		Height:       height,
	}, nil
}

func (r *Resizer) write(path string, img image.Image, format Format) error {
	encode, ok := r.encoders[format]
	if !ok {
		return fmt.Errorf("no encoder for format %s", format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
