package enroll

import (
	"fmt"
	"time"

	"face-enroll/internal/imagex"
)

// Step describes one upload attempt. MaxDimension 0 sends the original photo.
type Step struct {
	Label        string
	MaxDimension int
	Quality      int
}

// DefaultLadder is the original photo followed by exactly two reductions.
// Only a too-large rejection moves to the next step.
func DefaultLadder() []Step {
	return []Step{
		{Label: "original"},
		{Label: "900", MaxDimension: 900, Quality: 85},
		{Label: "720", MaxDimension: 720, Quality: 80},
	}
}

// Resized reports whether the step needs a re-encoded copy of the photo.
func (s Step) Resized() bool { return s.MaxDimension > 0 }

// Filename is the multipart filename for this step, e.g.
// employee_face_1700000000000.jpg or employee_face_900_1700000000000.jpg.
func (s Step) Filename(now time.Time) string {
	if !s.Resized() {
		return fmt.Sprintf("employee_face_%d.jpg", now.UnixMilli())
	}
	return fmt.Sprintf("employee_face_%d_%d.jpg", s.MaxDimension, now.UnixMilli())
}

func (s Step) resizeOptions(src, outDir string) imagex.ResizeOptions {
	return imagex.ResizeOptions{
		SourcePath: src,
		MaxWidth:   s.MaxDimension,
		MaxHeight:  s.MaxDimension,
		Format:     imagex.FormatJPEG,
		Quality:    s.Quality,
		Crop:       imagex.CropCover,
		OutDir:     outDir,
	}
}
