package salon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"face-enroll/internal/domain"
	"face-enroll/internal/httpx"
)

const testBaseURL = "https://salon.example.com/api"

var testFields = []domain.FormField{
	{Name: "name", Value: "Ali"},
	{Name: "phoneNumber", Value: "03001234567"},
	{Name: "idCardNumber", Value: "12345"},
	{Name: "monthlySalary", Value: "50000"},
	{Name: "role", Value: "manager"},
}

func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "face.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8\xff\xe0fake-jpeg-bytes\xff\xd9"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	client := New(testBaseURL+"/", 0)

	if client.BaseURL != testBaseURL {
		t.Errorf("Expected BaseURL to be %q, got %q", testBaseURL, client.BaseURL)
	}
	if client.HTTP == nil {
		t.Fatal("Expected HTTP client to be initialized")
	}
	if client.HTTP.Timeout != 2*time.Minute {
		t.Errorf("Expected default timeout of 2m, got %v", client.HTTP.Timeout)
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"role":"manager"`) {
			t.Errorf("Expected lowercased role in body, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123","user":{"id":"u1","name":"Hina","role":"manager"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	lr, err := client.Login(context.Background(), LoginRequest{Email: "hina@salon.pk", Password: "secret", Role: "Manager"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if lr.Token != "tok-123" || lr.User.Name != "Hina" {
		t.Errorf("Unexpected login response %+v", lr)
	}
}

func TestLoginFailures(t *testing.T) {
	client := New(testBaseURL, time.Second)
	if _, err := client.Login(context.Background(), LoginRequest{}); err == nil {
		t.Error("Expected error for missing credentials")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer srv.Close()

	client = New(srv.URL, time.Second)
	_, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "x"})
	if err == nil || !strings.Contains(err.Error(), "Invalid credentials") {
		t.Errorf("Expected server message in error, got %v", err)
	}
	var herr *httpx.HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected wrapped HTTPError with 401, got %v", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{}}`))
	}))
	defer empty.Close()

	client = New(empty.URL, time.Second)
	if _, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "x"}); err == nil {
		t.Error("Expected error when token is missing")
	}
}

func TestAddEmployee(t *testing.T) {
	photo := writePhoto(t)
	photoBytes, _ := os.ReadFile(photo)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/employees/add" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Expected bearer header, got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Expected Accept: application/json, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		for _, f := range testFields {
			if got := r.FormValue(f.Name); got != f.Value {
				t.Errorf("Field %s = %q, want %q", f.Name, got, f.Value)
			}
		}
		file, hdr, err := r.FormFile("livePicture")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		if hdr.Filename != "employee_face_1700000000000.jpg" {
			t.Errorf("Unexpected filename %q", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Expected image/jpeg part, got %q", ct)
		}
		got, _ := io.ReadAll(file)
		if string(got) != string(photoBytes) {
			t.Error("Photo bytes differ from the file on disk")
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"employeeId":"EMP-42"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	resp, err := client.AddEmployee(context.Background(), "tok-123", testFields, Photo{Path: photo, Filename: "employee_face_1700000000000.jpg"})
	if err != nil {
		t.Fatalf("AddEmployee: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected 201, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"employeeId":"EMP-42"}` {
		t.Errorf("Unexpected body %s", resp.Body)
	}
}

func TestAddEmployeeReturnsRejections(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	resp, err := client.AddEmployee(context.Background(), "tok", testFields, Photo{Path: writePhoto(t)})
	if err != nil {
		t.Fatalf("Expected rejection as response, got error %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
	if calls != 1 {
		t.Errorf("Expected exactly one round trip, got %d", calls)
	}
}

func TestAddEmployeeErrors(t *testing.T) {
	client := New(testBaseURL, time.Second)

	if _, err := client.AddEmployee(context.Background(), "", testFields, Photo{Path: writePhoto(t)}); err == nil {
		t.Error("Expected error for missing token")
	}

	_, err := client.AddEmployee(context.Background(), "tok", testFields, Photo{Path: filepath.Join(t.TempDir(), "none.jpg")})
	if !errors.Is(err, ErrInvalidForm) {
		t.Errorf("Expected ErrInvalidForm for missing photo, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client = New(url, time.Second)
	_, err = client.AddEmployee(context.Background(), "tok", testFields, Photo{Path: writePhoto(t)})
	if err == nil || !httpx.IsTransportError(err) {
		t.Errorf("Expected transport error for closed server, got %v", err)
	}
}
