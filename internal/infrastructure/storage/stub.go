package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sellerdash/backend/internal/domain/sales"
)

var _ ReportStore = (*StubReportStore)(nil)

// StubReportStore keeps reports in memory. It is used when object storage is
// disabled, so the export hook and the report endpoint keep working locally.
type StubReportStore struct {
	// BaseURL is the base of generated report URLs
	BaseURL string

	mu      sync.RWMutex
	reports map[string]*MonthlySalesReport
}

// NewStubReportStore creates a new StubReportStore
func NewStubReportStore() *StubReportStore {
	return &StubReportStore{
		BaseURL: "https://storage.example.com",
		reports: make(map[string]*MonthlySalesReport),
	}
}

// PutMonthlyReport stores the report in memory
func (s *StubReportStore) PutMonthlyReport(_ context.Context, report *MonthlySalesReport) (string, error) {
	month, err := sales.ParseMonth(report.Month)
	if err != nil {
		return "", err
	}
	key := ReportKey(DefaultPrefix, month)

	s.mu.Lock()
	s.reports[key] = report
	s.mu.Unlock()
	return key, nil
}

// GetMonthlyReport returns a stored report
func (s *StubReportStore) GetMonthlyReport(_ context.Context, month sales.Month) (*MonthlySalesReport, error) {
	key := ReportKey(DefaultPrefix, month)

	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, key)
	}
	return report, nil
}

// ReportURL returns a fake URL for a stored report
func (s *StubReportStore) ReportURL(ctx context.Context, month sales.Month, expiresIn time.Duration) (string, time.Time, error) {
	if _, err := s.GetMonthlyReport(ctx, month); err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/" + ReportKey(DefaultPrefix, month) + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}
