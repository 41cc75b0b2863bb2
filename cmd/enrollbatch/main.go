package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"face-enroll/internal/app"
	"face-enroll/internal/batch"
	"face-enroll/internal/config"
	"face-enroll/internal/domain"
	"face-enroll/internal/export"
)

func main() {
	var (
		manifest = flag.String("manifest", "", "CSV with name,phoneNumber,idCardNumber,monthlySalary,role,photo")
		workers  = flag.Int("workers", 0, "registrations in flight (default $ENROLL_WORKERS)")
		dryRun   = flag.Bool("dry-run", false, "validate the manifest but do not upload")
		report   = flag.String("report", "", "optional CSV file receiving one outcome row per employee")
	)
	flag.Parse()

	cfg := config.Load()
	logger, err := app.Logger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if *workers <= 0 {
		*workers = cfg.EnrollWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	start := time.Now()
	sum, err := run(ctx, *manifest, *report, *workers, *dryRun, app.Pipeline(cfg, logger), logger, os.Stdout)
	logger.Info("execution finished", zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		logger.Error("batch failed", zap.Error(err))
	}

	stop()
	logger.Sync()
	os.Exit(exitCode(sum, err))
}

// exitCode is 0 only when the batch ran and every registration succeeded.
func exitCode(sum batch.Summary, err error) int {
	if err != nil || sum.Failed > 0 {
		return 1
	}
	return 0
}

func run(ctx context.Context, manifestPath, reportPath string, workers int, dryRun bool, reg batch.Registrar, logger *zap.Logger, w io.Writer) (batch.Summary, error) {
	if manifestPath == "" {
		return batch.Summary{}, fmt.Errorf("-manifest is required")
	}
	f, err := os.Open(manifestPath)
	if err != nil {
		return batch.Summary{}, err
	}
	defer f.Close()

	reqs, err := batch.ReadManifest(f, filepath.Dir(manifestPath))
	if err != nil {
		return batch.Summary{}, err
	}
	logger.Info("manifest loaded", zap.String("file", manifestPath), zap.Int("employees", len(reqs)), zap.Int("workers", workers))

	if dryRun {
		for i, r := range reqs {
			fmt.Fprintf(w, "%d) %s role=%s salary=%s photo=%s\n", i+1, r.Name, r.Role, domain.FormatSalary(r.MonthlySalary), r.FacePhoto)
		}
		fmt.Fprintf(w, "dry run: %d employees, nothing uploaded\n", len(reqs))
		return batch.Summary{Total: len(reqs)}, nil
	}

	items, sum := batch.Run(ctx, reg, reqs, workers, logger)
	for i, it := range items {
		switch {
		case it.Err == nil:
			fmt.Fprintf(w, "%d) %s: OK id=%s\n", i+1, it.Request.Name, it.Outcome.EmployeeID)
		case it.Outcome != nil:
			fmt.Fprintf(w, "%d) %s: FAILED [%s] %s\n", i+1, it.Request.Name, it.Outcome.ErrorKind, it.Outcome.UserMessage)
		default:
			fmt.Fprintf(w, "%d) %s: SKIPPED %v\n", i+1, it.Request.Name, it.Err)
		}
	}
	printSummary(w, sum)

	if reportPath != "" {
		if err := writeReport(reportPath, items); err != nil {
			return sum, err
		}
		logger.Info("report written", zap.String("file", reportPath))
	}
	return sum, nil
}

func writeReport(path string, items []batch.Item) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteOutcomesCSV(f, items); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

func printSummary(w io.Writer, sum batch.Summary) {
	fmt.Fprintf(w, "total=%d succeeded=%d failed=%d networkCalls=%d\n", sum.Total, sum.Succeeded, sum.Failed, sum.NetworkCalls)
	kinds := make([]string, 0, len(sum.ByKind))
	for k := range sum.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, sum.ByKind[domain.ErrorKind(k)])
	}
}
