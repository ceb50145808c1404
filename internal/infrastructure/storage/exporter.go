package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// ReportExporter snapshots a month's stored sales into a ReportStore
type ReportExporter struct {
	store  ReportStore
	sales  sales.SaleRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReportExporter creates an exporter
func NewReportExporter(store ReportStore, saleRepo sales.SaleRepository, logger *zap.Logger) *ReportExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportExporter{store: store, sales: saleRepo, logger: logger, now: time.Now}
}

// Export reads every stored row of month and uploads the snapshot. The rows of
// the sync that triggered the export are ignored: a partial sync leaves earlier
// rows of failed shops in the database and the snapshot must include them.
func (e *ReportExporter) Export(ctx context.Context, month sales.Month) (string, error) {
	rows, err := e.sales.FindByRange(ctx, sales.SalesFilter{
		StartDate: month.Start(),
		EndDate:   month.LastDay(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to load sales for %s: %w", month, err)
	}

	key, err := e.store.PutMonthlyReport(ctx, NewMonthlySalesReport(month, rows, e.now()))
	if err != nil {
		return "", err
	}
	return key, nil
}

// OnMonthSynced adapts Export to the sync service's month callback
func (e *ReportExporter) OnMonthSynced(ctx context.Context, month sales.Month, _ []sales.Sale) error {
	_, err := e.Export(ctx, month)
	return err
}
