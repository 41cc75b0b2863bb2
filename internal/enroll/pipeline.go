package enroll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"face-enroll/internal/domain"
	"face-enroll/internal/imagex"
	"face-enroll/internal/providers/salon"
	"face-enroll/internal/session"
)

// EmployeeAPI is the one backend call the pipeline needs.
type EmployeeAPI interface {
	AddEmployee(ctx context.Context, token string, fields []domain.FormField, photo salon.Photo) (*salon.Response, error)
}

// Archiver keeps a copy of the photo the backend accepted.
type Archiver interface {
	Archive(ctx context.Context, employeeID, photoPath string) error
}

// Pipeline registers employees with a face photo, shrinking the photo only
// when the backend says the upload is too large.
//
// Attempts run strictly in ladder order and never overlap: each one depends on
// how the previous one was classified.
type Pipeline struct {
	API     EmployeeAPI
	Auth    session.AuthProvider
	Resizer imagex.Resizer
	Logger  *zap.Logger

	// Optional.
	Archiver Archiver
	Ladder   []Step
	WorkDir  string
	Now      func() time.Time
	NewRef   func() string
}

func New(api EmployeeAPI, auth session.AuthProvider, resizer imagex.Resizer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		API:     api,
		Auth:    auth,
		Resizer: resizer,
		Logger:  logger,
	}
}

func (p *Pipeline) ladder() []Step {
	if len(p.Ladder) == 0 {
		return DefaultLadder()
	}
	return p.Ladder
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) newRef() string {
	if p.NewRef != nil {
		return p.NewRef()
	}
	return ksuid.New().String()
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

// Register runs one registration to its terminal state. The outcome is always
// non-nil; err is a *RegistrationError exactly when the outcome is a failure.
func (p *Pipeline) Register(ctx context.Context, req domain.EmployeeRegistrationRequest) (*domain.RegistrationOutcome, error) {
	ref := p.newRef()
	log := p.logger().With(zap.String("clientRef", ref), zap.String("employee", req.Name))

	ladder := p.ladder()
	out := &domain.RegistrationOutcome{
		ClientRef: ref,
		Attempts:  make([]domain.UploadAttempt, len(ladder)),
	}
	for i, s := range ladder {
		out.Attempts[i] = domain.UploadAttempt{
			Label:        s.Label,
			MaxDimension: s.MaxDimension,
			Quality:      s.Quality,
			Outcome:      domain.AttemptPending,
		}
	}

	if err := req.Validate(); err != nil {
		return p.fail(log, out, &RegistrationError{Kind: domain.KindInvalidRequest, Err: err})
	}

	token, err := p.Auth.Token(ctx)
	if err != nil {
		if isCanceled(err) {
			return p.fail(log, out, &RegistrationError{Kind: domain.KindNetworkError, Err: err})
		}
		return p.fail(log, out, &RegistrationError{Kind: domain.KindAuth, Err: err})
	}

	var temps []string
	defer func() {
		for _, path := range temps {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("remove re-encoded photo", zap.String("path", path), zap.Error(err))
			}
		}
	}()

	fields := req.FormFields()
	log.Info("registration started", zap.Int("steps", len(ladder)))

	var last Classification
	for i, step := range ladder {
		attempt := &out.Attempts[i]

		photoPath := req.FacePhoto
		if step.Resized() {
			resized, err := p.Resizer.Resize(ctx, step.resizeOptions(req.FacePhoto, p.WorkDir))
			if err != nil {
				if isCanceled(err) {
					return p.fail(log, out, &RegistrationError{Kind: domain.KindNetworkError, Err: err})
				}
				return p.fail(log, out, &RegistrationError{
					Kind:       domain.KindPayloadTooLarge,
					StatusCode: last.StatusCode,
					Code:       last.Code,
					Message:    last.Message,
					Err:        fmt.Errorf("re-encode photo to %dpx: %w", step.MaxDimension, err),
				})
			}
			temps = append(temps, resized)
			photoPath = resized
		}

		attempt.Filename = step.Filename(p.now())
		resp, err := p.API.AddEmployee(ctx, token, fields, salon.Photo{Path: photoPath, Filename: attempt.Filename})
		if err != nil {
			if errors.Is(err, salon.ErrInvalidForm) {
				return p.fail(log, out, &RegistrationError{Kind: domain.KindInvalidRequest, Err: err})
			}
			attempt.Outcome = domain.AttemptNetworkError
			return p.fail(log, out, &RegistrationError{Kind: domain.KindNetworkError, Err: err})
		}

		c := Classify(resp.StatusCode, resp.Body)
		attempt.StatusCode = c.StatusCode
		attempt.Outcome = c.Outcome

		switch c.Outcome {
		case domain.AttemptSuccess:
			out.EmployeeID = c.EmployeeID
			if out.EmployeeID == "" {
				out.EmployeeID = ref
				log.Warn("backend did not return an employeeId; keeping client reference")
			}
			out.StatusCode = c.StatusCode
			out.UserMessage = UserMessage(domain.KindNone, c.StatusCode, "")
			log.Info("employee registered",
				zap.String("employeeId", out.EmployeeID),
				zap.String("step", step.Label),
				zap.Int("networkCalls", out.NetworkCalls()))
			p.archive(ctx, log, out.EmployeeID, photoPath)
			return out, nil

		case domain.AttemptRejectedTooLarge:
			last = c
			log.Warn("photo rejected as too large",
				zap.String("step", step.Label),
				zap.Int("status", c.StatusCode),
				zap.String("filename", attempt.Filename))
			continue

		default:
			return p.fail(log, out, &RegistrationError{
				Kind:       c.Kind,
				StatusCode: c.StatusCode,
				Code:       c.Code,
				Message:    c.Message,
			})
		}
	}

	return p.fail(log, out, &RegistrationError{
		Kind:       domain.KindPayloadTooLarge,
		StatusCode: last.StatusCode,
		Code:       last.Code,
		Message:    last.Message,
	})
}

func (p *Pipeline) fail(log *zap.Logger, out *domain.RegistrationOutcome, rerr *RegistrationError) (*domain.RegistrationOutcome, error) {
	out.EmployeeID = ""
	out.ErrorKind = rerr.Kind
	out.StatusCode = rerr.StatusCode
	out.ServerCode = rerr.Code
	out.ServerMessage = rerr.Message
	out.UserMessage = UserMessage(rerr.Kind, rerr.StatusCode, rerr.Message)

	log.Warn("registration failed",
		zap.String("kind", string(rerr.Kind)),
		zap.Int("status", rerr.StatusCode),
		zap.String("code", rerr.Code),
		zap.Int("networkCalls", out.NetworkCalls()),
		zap.Error(rerr.Err))
	return out, rerr
}

func (p *Pipeline) archive(ctx context.Context, log *zap.Logger, employeeID, photoPath string) {
	if p.Archiver == nil {
		return
	}
	if err := p.Archiver.Archive(ctx, employeeID, photoPath); err != nil {
		log.Warn("archive accepted photo", zap.String("employeeId", employeeID), zap.Error(err))
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
