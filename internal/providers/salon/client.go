package salon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"face-enroll/internal/domain"
	"face-enroll/internal/httpx"
)

const (
	contentTypeJSON = "application/json"
	acceptJSON      = contentTypeJSON
	acceptEncoding  = "br"

	loginPath       = "/auth/login"
	addEmployeePath = "/employees/add"
)

// Client talks to the salon management backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for a bearer token. Unlike uploads, login is
// safe to retry on 5xx/429.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, errors.New("salon: login requires email and password")
	}
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var lr LoginResponse
	err = httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+loginPath, bytes.NewReader(b))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", contentTypeJSON)
			r.Header.Set("Accept", acceptJSON)
			r.Header.Set("Accept-Encoding", acceptEncoding)
			return r, nil
		},
		&lr,
		httpx.DefaultRetryConfig(),
	)
	if err != nil {
		var herr *httpx.HTTPError
		if errors.As(err, &herr) {
			if msg := httpx.ParseAPIError(herr.Body).Text(); msg != "" {
				return nil, fmt.Errorf("salon: login failed (status=%d): %s: %w", herr.StatusCode, msg, err)
			}
		}
		return nil, fmt.Errorf("salon: login failed: %w", err)
	}
	if strings.TrimSpace(lr.Token) == "" {
		return nil, errors.New("salon: login: token not found in response")
	}
	return &lr, nil
}

// Photo is the image part of an employee registration.
type Photo struct {
	Path     string
	Filename string
}

// Response is a raw backend answer; classifying it is the caller's job.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// AddEmployee submits one registration form. It performs exactly one round trip
// and never retries: whether another attempt makes sense depends on the
// rejection. A non-nil error means no response was received (or the form could
// not be built); every HTTP status, 2xx or not, comes back as a Response.
func (c *Client) AddEmployee(ctx context.Context, token string, fields []domain.FormField, photo Photo) (*Response, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("salon: missing bearer token (login first)")
	}

	form, err := buildEmployeeForm(fields, photo)
	if err != nil {
		return nil, err
	}

	resp, body, err := httpx.Do(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+addEmployeePath, bytes.NewReader(form.body))
			if err != nil {
				return nil, err
			}
			r.ContentLength = int64(len(form.body))
			r.Header.Set("Content-Type", form.contentType)
			r.Header.Set("Accept", acceptJSON)
			r.Header.Set("Accept-Encoding", acceptEncoding)
			r.Header.Set("Authorization", "Bearer "+token)
			return r, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("salon: add employee: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
