package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"face-enroll/internal/domain"
)

// Manifest columns. Header names are matched case-insensitively and may appear
// in any order; name and photo are required.
const (
	ColName          = "name"
	ColPhoneNumber   = "phonenumber"
	ColIDCardNumber  = "idcardnumber"
	ColMonthlySalary = "monthlysalary"
	ColRole          = "role"
	ColPhoto         = "photo"
)

// ReadManifest parses a CSV manifest into registration requests.
// Relative photo paths are resolved against baseDir.
func ReadManifest(r io.Reader, baseDir string) ([]domain.EmployeeRegistrationRequest, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("batch: manifest is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("batch: read header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, req := range []string{ColName, ColPhoto} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("batch: manifest header is missing column %q", req)
		}
	}

	var out []domain.EmployeeRegistrationRequest
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("batch: %w", err)
		}
		line, _ := cr.FieldPos(0)

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		salary, err := domain.ParseSalary(get(ColMonthlySalary))
		if err != nil {
			return nil, fmt.Errorf("batch: line %d: %w", line, err)
		}
		role, err := domain.NormalizeRole(get(ColRole))
		if err != nil {
			return nil, fmt.Errorf("batch: line %d: %w", line, err)
		}
		photo := get(ColPhoto)
		if photo != "" && !filepath.IsAbs(photo) {
			photo = filepath.Join(baseDir, photo)
		}

		req := domain.EmployeeRegistrationRequest{
			Name:          get(ColName),
			PhoneNumber:   get(ColPhoneNumber),
			IDCardNumber:  get(ColIDCardNumber),
			MonthlySalary: salary,
			Role:          role,
			FacePhoto:     photo,
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("batch: line %d: %w", line, err)
		}
		out = append(out, req)
	}
	return out, nil
}
