package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"strings"
)

// Capturer produces the original face photo for a registration.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// FileCapturer is a headless capture source: the photo was taken elsewhere
// and saved to Path. Capture checks that it is a usable JPEG.
type FileCapturer struct {
	Path string
}

var ErrNotJPEG = errors.New("capture: photo is not a JPEG image")

func (c FileCapturer) Capture(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(c.Path) == "" {
		return "", errors.New("capture: no photo path given")
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return "", fmt.Errorf("capture: open %s: %w", c.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("capture: stat %s: %w", c.Path, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return "", fmt.Errorf("capture: %s is empty or not a file", c.Path)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil || format != "jpeg" {
		return "", fmt.Errorf("%w: %s", ErrNotJPEG, c.Path)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return "", fmt.Errorf("capture: %s has no pixels", c.Path)
	}
	return c.Path, nil
}
