package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Role is the access level an employee is registered with.
// The backend only understands the lowercase spelling.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// NormalizeRole lowercases and validates a role typed by a user or read from a file.
// An empty role means a plain employee.
func NormalizeRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return RoleEmployee, nil
	}
	if !r.Valid() {
		return "", fmt.Errorf("domain: unknown role %q (want employee, manager or admin)", s)
	}
	return r, nil
}

// EmployeeRegistrationRequest is everything needed to create an employee with a face photo.
// FacePhoto points to a JPEG owned by the caller; it is only ever read.
type EmployeeRegistrationRequest struct {
	Name          string
	PhoneNumber   string
	IDCardNumber  string
	MonthlySalary *float64 // nil = not provided, sent as 0
	Role          Role
	FacePhoto     string
}

var ErrMissingFacePhoto = errors.New("domain: registration requires a face photo")

func (r EmployeeRegistrationRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("domain: name is required")
	}
	if _, err := NormalizeRole(string(r.Role)); err != nil {
		return err
	}
	if r.MonthlySalary != nil {
		if err := checkSalary(*r.MonthlySalary); err != nil {
			return err
		}
	}
	if strings.TrimSpace(r.FacePhoto) == "" {
		return ErrMissingFacePhoto
	}
	return nil
}

// FormField is one text part of the multipart registration form.
type FormField struct {
	Name  string
	Value string
}

// FormFields returns the text fields in wire order. The result depends only on the
// request, so every upload attempt of one registration sends identical bytes.
func (r EmployeeRegistrationRequest) FormFields() []FormField {
	role, err := NormalizeRole(string(r.Role))
	if err != nil {
		role = Role(strings.ToLower(strings.TrimSpace(string(r.Role))))
	}
	return []FormField{
		{Name: "name", Value: r.Name},
		{Name: "phoneNumber", Value: r.PhoneNumber},
		{Name: "idCardNumber", Value: r.IDCardNumber},
		{Name: "monthlySalary", Value: FormatSalary(r.MonthlySalary)},
		{Name: "role", Value: string(role)},
	}
}

// FormatSalary renders a salary without exponent notation; nil becomes "0".
func FormatSalary(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ParseSalary is the inverse used by manifests and flags. Blank input yields nil.
func ParseSalary(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("domain: invalid monthly salary %q: %w", s, err)
	}
	if err := checkSalary(v); err != nil {
		return nil, err
	}
	return &v, nil
}

// checkSalary accepts finite, non-negative amounts only.
func checkSalary(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("domain: monthly salary must be a finite number, got %v", v)
	}
	if v < 0 {
		return fmt.Errorf("domain: monthly salary must be >= 0, got %v", v)
	}
	return nil
}
