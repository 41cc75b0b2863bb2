package salon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"

	"face-enroll/internal/domain"
)

const photoField = "livePicture"

// ErrInvalidForm means the registration form could not be assembled locally.
var ErrInvalidForm = errors.New("salon: invalid registration form")

type encodedForm struct {
	body        []byte
	contentType string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildEmployeeForm writes the text fields in order followed by the photo part.
// The body is buffered so the request can be rebuilt without re-reading the file.
func buildEmployeeForm(fields []domain.FormField, photo Photo) (*encodedForm, error) {
	if strings.TrimSpace(photo.Path) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidForm, domain.ErrMissingFacePhoto)
	}
	filename := photo.Filename
	if filename == "" {
		filename = "employee_face.jpg"
	}

	f, err := os.Open(photo.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open photo: %w", ErrInvalidForm, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fld := range fields {
		if err := w.WriteField(fld.Name, fld.Value); err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", ErrInvalidForm, fld.Name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(photoField), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("%w: photo part: %w", ErrInvalidForm, err)
	}
	n, err := io.Copy(part, f)
	if err != nil {
		return nil, fmt.Errorf("%w: read photo: %w", ErrInvalidForm, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: photo %s is empty", ErrInvalidForm, photo.Path)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}
	return &encodedForm{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}
