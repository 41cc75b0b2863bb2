package batch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"face-enroll/internal/concurrency"
	"face-enroll/internal/domain"
)

// Registrar is satisfied by *enroll.Pipeline.
type Registrar interface {
	Register(ctx context.Context, req domain.EmployeeRegistrationRequest) (*domain.RegistrationOutcome, error)
}

// Item pairs a manifest row with how its registration ended.
type Item struct {
	Request domain.EmployeeRegistrationRequest
	Outcome *domain.RegistrationOutcome
	Err     error
}

type Summary struct {
	Total        int
	Succeeded    int
	Failed       int
	NetworkCalls int
	ByKind       map[domain.ErrorKind]int
}

// Run registers every request with at most workers registrations in flight.
// Each registration still walks its upload ladder sequentially.
func Run(ctx context.Context, reg Registrar, reqs []domain.EmployeeRegistrationRequest, workers int, logger *zap.Logger) ([]Item, Summary) {
	if logger == nil {
		logger = zap.NewNop()
	}

	results := concurrency.ProcessParallel(ctx, reqs, concurrency.Options{MaxWorkers: workers},
		func(ctx context.Context, i int, req domain.EmployeeRegistrationRequest) (*domain.RegistrationOutcome, error) {
			out, err := reg.Register(ctx, req)
			if err != nil {
				logger.Warn("batch item failed", zap.Int("row", i+1), zap.String("employee", req.Name), zap.Error(err))
			} else {
				logger.Info("batch item registered", zap.Int("row", i+1), zap.String("employee", req.Name), zap.String("employeeId", out.EmployeeID))
			}
			return out, err
		})

	items := make([]Item, len(reqs))
	sum := Summary{Total: len(reqs), ByKind: map[domain.ErrorKind]int{}}
	for i, r := range results {
		items[i] = Item{Request: reqs[i], Outcome: r.Value, Err: r.Err}
		if r.Value != nil {
			sum.NetworkCalls += r.Value.NetworkCalls()
		}
		if r.Err == nil {
			sum.Succeeded++
			continue
		}
		sum.Failed++
		sum.ByKind[kindOf(r)]++
	}
	return items, sum
}

func kindOf(r concurrency.Result[*domain.RegistrationOutcome]) domain.ErrorKind {
	if r.Value != nil && r.Value.ErrorKind != domain.KindNone {
		return r.Value.ErrorKind
	}
	// Never started: the batch was canceled.
	if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
		return domain.KindNetworkError
	}
	return domain.KindServerRejected
}
