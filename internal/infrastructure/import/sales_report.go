package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerdash/backend/internal/domain/sales"
)

// Canonical columns of a sales report
const (
	ColSellerID = "seller_id"
	ColDate     = "date"
	ColCurrency = "currency"
	ColOrders   = "orders"
	ColUnits    = "units"
	ColSales    = "sales"
	ColRefunds  = "refunds"
	ColAdSpend  = "ad_spend"
)

// salesReportAliases lists the English and Chinese headers of the ERP export
var salesReportAliases = map[string][]string{
	ColSellerID: {"sid", "shop id", "store id", "店铺id", "店铺"},
	ColDate:     {"day", "report date", "日期", "统计日期"},
	ColCurrency: {"currency code", "币种", "货币"},
	ColOrders:   {"order count", "order items", "订单量", "订单数"},
	ColUnits:    {"units sold", "volume", "quantity", "销量"},
	ColSales:    {"sales amount", "amount", "revenue", "销售额"},
	ColRefunds:  {"refund", "refund amount", "退款金额", "退款额"},
	ColAdSpend:  {"ad spend", "spend", "ads", "广告花费", "广告费"},
}

var requiredSalesColumns = []string{ColSellerID, ColDate, ColSales}

var reportDateLayouts = []string{"2006-01-02", "2006/01/02", "2006/1/2", "2006-1-2", "20060102"}

// SalesReport is the outcome of parsing a sales export
type SalesReport struct {
	Rows        []sales.Sale
	Errors      []RowError
	TotalRows   int
	TotalErrors int
	Truncated   bool
}

// ReportOption configures ParseSalesReport
type ReportOption func(*reportOptions)

type reportOptions struct {
	defaultCurrency string
	maxErrors       int
	delimiter       rune
	syncedAt        time.Time
}

// WithDefaultCurrency sets the currency of rows without a currency column or value
func WithDefaultCurrency(code string) ReportOption {
	return func(o *reportOptions) {
		o.defaultCurrency = sales.NormalizeCurrency(code)
	}
}

// WithMaxErrors bounds the row errors kept in the report
func WithMaxErrors(n int) ReportOption {
	return func(o *reportOptions) {
		o.maxErrors = n
	}
}

// WithReportDelimiter sets the field delimiter
func WithReportDelimiter(d rune) ReportOption {
	return func(o *reportOptions) {
		o.delimiter = d
	}
}

// ParseSalesReport reads a "sales statistics" CSV export into sale rows. Invalid rows
// are reported in Errors and left out of Rows; structural problems (encoding,
// header, missing columns) fail the whole file.
func ParseSalesReport(r io.Reader, opts ...ReportOption) (*SalesReport, error) {
	o := reportOptions{maxErrors: 100, delimiter: ',', syncedAt: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}

	parser, err := NewCSVParser(r, WithDelimiter(o.delimiter), WithHeaderAliases(salesReportAliases))
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(requiredSalesColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	report := &SalesReport{Rows: make([]sales.Sale, 0)}
	errs := NewErrorCollection(o.maxErrors)

	for {
		row, err := parser.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.TotalRows++
			errs.Add(RowError{Row: parser.CurrentRow(), Code: ErrCodeImportMalformedRow, Message: err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		report.TotalRows++

		if sale, ok := parseSaleRow(row, o, errs); ok {
			report.Rows = append(report.Rows, sale)
		}
	}

	report.Errors = errs.Errors()
	report.TotalErrors = errs.TotalCount()
	report.Truncated = errs.IsTruncated()
	return report, nil
}

func parseSaleRow(row *Row, o reportOptions, errs *ErrorCollection) (sales.Sale, bool) {
	line := row.LineNumber
	before := errs.TotalCount()

	sale := sales.Sale{
		SellerID: row.Get(ColSellerID),
		Currency: sales.NormalizeCurrency(row.Get(ColCurrency)),
		SyncedAt: o.syncedAt,
	}
	if sale.SellerID == "" {
		errs.AddRequiredError(line, ColSellerID)
	}
	if sale.Currency == "" {
		sale.Currency = o.defaultCurrency
	}
	if sale.Currency == "" {
		errs.AddRequiredError(line, ColCurrency)
	}

	if raw := row.Get(ColDate); raw == "" {
		errs.AddRequiredError(line, ColDate)
	} else if date, ok := parseReportDate(raw); ok {
		sale.Date = date
	} else {
		errs.AddFormatError(line, ColDate, "YYYY-MM-DD", raw)
	}

	sale.OrderCount = parseCount(row, ColOrders, errs)
	sale.UnitsSold = parseCount(row, ColUnits, errs)
	sale.SalesAmount = parseMoney(row, ColSales, errs)
	sale.RefundAmount = parseMoney(row, ColRefunds, errs)
	sale.AdSpend = parseMoney(row, ColAdSpend, errs)

	if errs.TotalCount() > before {
		return sales.Sale{}, false
	}
	if err := sale.Validate(); err != nil {
		errs.Add(RowError{Row: line, Code: ErrCodeImportValidation, Message: err.Error()})
		return sales.Sale{}, false
	}
	return sale, true
}

func parseReportDate(raw string) (time.Time, bool) {
	// exports sometimes carry a time part
	if i := strings.IndexByte(raw, ' '); i > 0 {
		raw = raw[:i]
	}
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCount(row *Row, column string, errs *ErrorCollection) int {
	raw := cleanNumber(row.Get(column))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// counts exported as "3.0"
		d, derr := decimal.NewFromString(raw)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			errs.AddFormatError(row.LineNumber, column, "integer", row.Get(column))
			return 0
		}
		n = int(d.IntPart())
	}
	if n < 0 {
		errs.AddRangeError(row.LineNumber, column, row.Get(column))
		return 0
	}
	return n
}

func parseMoney(row *Row, column string, errs *ErrorCollection) decimal.Decimal {
	raw := cleanNumber(row.Get(column))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		errs.AddFormatError(row.LineNumber, column, "decimal number", row.Get(column))
		return decimal.Zero
	}
	if d.IsNegative() {
		errs.AddRangeError(row.LineNumber, column, row.Get(column))
		return decimal.Zero
	}
	return d
}

// cleanNumber drops thousands separators and leading currency symbols
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "-" || s == "--" {
		return ""
	}
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimLeft(s, "$€£¥￥ ")
}
