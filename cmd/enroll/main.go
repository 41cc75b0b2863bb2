package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"face-enroll/internal/app"
	"face-enroll/internal/capture"
	"face-enroll/internal/config"
	"face-enroll/internal/domain"
)

type options struct {
	name, phone, idCard, salary, role, photo string
}

func main() {
	var o options
	flag.StringVar(&o.name, "name", "", "employee full name")
	flag.StringVar(&o.phone, "phone", "", "phone number")
	flag.StringVar(&o.idCard, "id-card", "", "national id card number")
	flag.StringVar(&o.salary, "salary", "", "monthly salary (blank = 0)")
	flag.StringVar(&o.role, "role", "employee", "employee, manager or admin")
	flag.StringVar(&o.photo, "photo", "", "path to the captured face photo (JPEG)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline for the registration")
	flag.Parse()

	cfg := config.Load()
	logger, err := app.Logger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, *timeout)

	start := time.Now()
	ok := run(ctx, o, cfg, logger, os.Stdout)
	logger.Info("execution finished", zap.Duration("elapsed", time.Since(start)))

	cancel()
	stop()
	logger.Sync()
	if !ok {
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, cfg config.Config, logger *zap.Logger, w io.Writer) bool {
	req, err := buildRequest(ctx, o)
	if err != nil {
		fmt.Fprintf(w, "invalid input: %v\n", err)
		return false
	}

	out, err := app.Pipeline(cfg, logger).Register(ctx, req)
	printOutcome(w, out)
	return err == nil
}

func buildRequest(ctx context.Context, o options) (domain.EmployeeRegistrationRequest, error) {
	photo, err := capture.FileCapturer{Path: o.photo}.Capture(ctx)
	if err != nil {
		return domain.EmployeeRegistrationRequest{}, err
	}
	salary, err := domain.ParseSalary(o.salary)
	if err != nil {
		return domain.EmployeeRegistrationRequest{}, err
	}
	role, err := domain.NormalizeRole(o.role)
	if err != nil {
		return domain.EmployeeRegistrationRequest{}, err
	}
	req := domain.EmployeeRegistrationRequest{
		Name:          o.name,
		PhoneNumber:   o.phone,
		IDCardNumber:  o.idCard,
		MonthlySalary: salary,
		Role:          role,
		FacePhoto:     photo,
	}
	return req, req.Validate()
}

func printOutcome(w io.Writer, out *domain.RegistrationOutcome) {
	for i, a := range out.Attempts {
		if a.Outcome == domain.AttemptPending {
			continue
		}
		fmt.Fprintf(w, "attempt %d (%s): status=%d %s\n", i+1, a.Label, a.StatusCode, a.Outcome)
	}
	if out.Success() {
		fmt.Fprintf(w, "OK: employee registered, id=%s\n", out.EmployeeID)
		return
	}
	fmt.Fprintf(w, "FAILED [%s]: %s\n", out.ErrorKind, out.UserMessage)
}
