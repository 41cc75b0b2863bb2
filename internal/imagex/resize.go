package imagex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type CropMode string

const (
	// CropCover scales to fill the box exactly and trims the overflowing axis.
	CropCover CropMode = "cover"
	// CropContain scales to fit inside the box, keeping the whole image.
	CropContain CropMode = "contain"
)

type Format string

const FormatJPEG Format = "jpeg"

type ResizeOptions struct {
	SourcePath string
	MaxWidth   int
	MaxHeight  int
	Format     Format
	Quality    int
	Crop       CropMode
	// OutDir receives the new file; empty means os.TempDir().
	OutDir string
}

// Resizer re-encodes an image into a new file and returns its path.
// The source file is never modified.
type Resizer interface {
	Resize(ctx context.Context, opts ResizeOptions) (string, error)
}

// ImagingResizer is the Resizer backed by github.com/disintegration/imaging.
type ImagingResizer struct{}

func (ImagingResizer) Resize(ctx context.Context, opts ResizeOptions) (string, error) {
	if err := validate(opts); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := imaging.Open(opts.SourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("imagex: open %s: %w", opts.SourcePath, err)
	}

	var dst = src
	switch opts.Crop {
	case CropCover, "":
		w, h := coverBox(src.Bounds().Dx(), src.Bounds().Dy(), opts.MaxWidth, opts.MaxHeight)
		dst = imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos)
	case CropContain:
		b := src.Bounds()
		if b.Dx() > opts.MaxWidth || b.Dy() > opts.MaxHeight {
			dst = imaging.Fit(src, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = os.TempDir()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("imagex: mkdir %s: %w", outDir, err)
	}
	out := filepath.Join(outDir, fmt.Sprintf("resized_%dx%d_%s.jpg", opts.MaxWidth, opts.MaxHeight, uuid.NewString()))

	if err := imaging.Save(dst, out, imaging.JPEGQuality(opts.Quality)); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("imagex: encode %s: %w", out, err)
	}
	return out, nil
}

// coverBox shrinks the target box proportionally when the source is smaller
// than it, so a cover crop never upscales.
func coverBox(srcW, srcH, maxW, maxH int) (int, int) {
	scale := 1.0
	if r := float64(srcW) / float64(maxW); r < scale {
		scale = r
	}
	if r := float64(srcH) / float64(maxH); r < scale {
		scale = r
	}
	w := int(math.Round(float64(maxW) * scale))
	h := int(math.Round(float64(maxH) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func validate(opts ResizeOptions) error {
	if strings.TrimSpace(opts.SourcePath) == "" {
		return errors.New("imagex: missing source path")
	}
	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		return fmt.Errorf("imagex: invalid target %dx%d", opts.MaxWidth, opts.MaxHeight)
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		return fmt.Errorf("imagex: quality %d out of range 1..100", opts.Quality)
	}
	switch opts.Format {
	case FormatJPEG, "":
	default:
		return fmt.Errorf("imagex: unsupported format %q", opts.Format)
	}
	switch opts.Crop {
	case CropCover, CropContain, "":
	default:
		return fmt.Errorf("imagex: unsupported crop mode %q", opts.Crop)
	}
	return nil
}
